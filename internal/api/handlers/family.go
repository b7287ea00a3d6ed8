package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/storage"
	"github.com/your-org/memora/pkg/dto"
)

type FamilyHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
	// EmbedFn extracts a face embedding from image bytes. Provided by
	// the external recognition service integration; nil disables
	// embedding capture on photo upload.
	EmbedFn func(imageData []byte) ([]float32, float32, error)
}

func NewFamilyHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *FamilyHandler {
	return &FamilyHandler{db: db, minio: minio}
}

func (h *FamilyHandler) Create(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	var req dto.CreateFamilyMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member := &models.FamilyMember{
		PatientID:    patient.ID,
		Name:         req.Name,
		Relationship: req.Relationship,
		PhotoURLs:    req.PhotoURLs,
		Notes:        req.Notes,
	}
	if err := h.db.CreateFamilyMember(c.Request.Context(), member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, member)
}

func (h *FamilyHandler) List(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	members, err := h.db.FamilyMembers(c.Request.Context(), patient.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"family_members": members, "total": len(members)})
}

// memberOf loads a family member and verifies it belongs to the
// caller's patient.
func (h *FamilyHandler) memberOf(c *gin.Context, patient *models.Patient) *models.FamilyMember {
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid family member id"})
		return nil
	}

	member, err := h.db.FamilyMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	if member == nil || member.PatientID != patient.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "family member not found"})
		return nil
	}
	return member
}

func (h *FamilyHandler) Get(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}
	member := h.memberOf(c, patient)
	if member == nil {
		return
	}
	c.JSON(http.StatusOK, member)
}

// AddFace accepts a multipart reference photo upload, stores it and
// records its embedding when the embed function is available.
func (h *FamilyHandler) AddFace(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}
	member := h.memberOf(c, patient)
	if member == nil {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	key := "family/" + patient.ID.String() + "/" + member.ID.String() + "/" + uuid.New().String() + "_" + header.Filename
	if err := h.minio.PutObject(c.Request.Context(), key, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	if h.EmbedFn != nil {
		embedding, quality, err := h.EmbedFn(imageData)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract face: " + err.Error()})
			return
		}
		if _, err := h.db.AddFaceEmbedding(c.Request.Context(), member.ID, embedding, quality, key); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (h *FamilyHandler) ListFaces(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}
	member := h.memberOf(c, patient)
	if member == nil {
		return
	}

	faces, err := h.db.ListFaceEmbeddings(c.Request.Context(), member.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"faces": faces, "total": len(faces)})
}

func (h *FamilyHandler) DeleteFaces(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}
	member := h.memberOf(c, patient)
	if member == nil {
		return
	}

	if err := h.db.DeleteFaceEmbeddings(c.Request.Context(), member.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
