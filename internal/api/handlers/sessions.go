package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/storage"
	"github.com/your-org/memora/pkg/dto"
)

type SessionHandler struct {
	db *storage.PostgresStore
}

func NewSessionHandler(db *storage.PostgresStore) *SessionHandler {
	return &SessionHandler{db: db}
}

// Create records a completed or in-progress reminiscence session with
// its reviewed memories.
func (h *SessionHandler) Create(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := &models.TherapySession{
		PatientID: patient.ID,
		Date:      req.Date,
		Duration:  req.Duration,
		Mood:      req.Mood,
		Notes:     req.Notes,
		Completed: req.Completed,
	}
	for _, sm := range req.Memories {
		memoryID, err := uuid.Parse(sm.MemoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memory id in session"})
			return
		}
		session.Memories = append(session.Memories, models.SessionMemory{
			MemoryID:    memoryID,
			RecallScore: sm.RecallScore,
			Response:    sm.Response,
			Notes:       sm.Notes,
			ReviewedAt:  req.Date,
		})
	}

	if err := h.db.CreateTherapySession(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) List(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	sessions, err := h.db.TherapySessions(c.Request.Context(), patient.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
}
