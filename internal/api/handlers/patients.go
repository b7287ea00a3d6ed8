package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/memora/internal/auth"
	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/storage"
	"github.com/your-org/memora/pkg/dto"
)

type PatientHandler struct {
	db *storage.PostgresStore
}

func NewPatientHandler(db *storage.PostgresStore) *PatientHandler {
	return &PatientHandler{db: db}
}

// ownedPatient loads the patient and verifies the caller owns it.
// Writes the error response itself and returns nil on failure.
func ownedPatient(c *gin.Context, db *storage.PostgresStore, idParam string) *models.Patient {
	id, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient id"})
		return nil
	}

	patient, err := db.Patient(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	caregiver := auth.CaregiverFrom(c)
	if patient == nil || caregiver == nil || patient.CaregiverID != caregiver.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return nil
	}
	return patient
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req dto.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patient := &models.Patient{
		Name:        req.Name,
		Age:         req.Age,
		Diagnosis:   req.Diagnosis,
		MMSEScore:   req.MMSEScore,
		Notes:       req.Notes,
		PhotoURL:    req.PhotoURL,
		CaregiverID: auth.CaregiverFrom(c).ID,
	}
	if err := h.db.CreatePatient(c.Request.Context(), patient); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, patient)
}

func (h *PatientHandler) List(c *gin.Context) {
	patients, err := h.db.PatientsByCaregiver(c.Request.Context(), auth.CaregiverFrom(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients, "total": len(patients)})
}

func (h *PatientHandler) Get(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}
	c.JSON(http.StatusOK, patient)
}

// Events lists the patient's recognition attempt history, newest first.
func (h *PatientHandler) Events(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.db.RecognitionEvents(c.Request.Context(), patient.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}
