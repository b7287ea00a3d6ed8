package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/memora/internal/auth"
	"github.com/your-org/memora/internal/briefing"
	"github.com/your-org/memora/internal/queue"
	"github.com/your-org/memora/internal/storage"
	"github.com/your-org/memora/internal/transfer"
	"github.com/your-org/memora/pkg/dto"
)

type TransferHandler struct {
	db       *storage.PostgresStore
	service  *transfer.Service
	briefing *briefing.Aggregator
	producer *queue.Producer
}

func NewTransferHandler(db *storage.PostgresStore, producer *queue.Producer) *TransferHandler {
	return &TransferHandler{
		db:       db,
		service:  transfer.NewService(db),
		briefing: briefing.NewAggregator(db),
		producer: producer,
	}
}

// Create initiates a transfer. The confirm_name field must match the
// patient's name exactly before the protocol runs.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caregiver := auth.CaregiverFrom(c)

	patient, err := h.db.Patient(c.Request.Context(), req.PatientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if patient == nil || patient.CaregiverID != caregiver.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}
	if strings.TrimSpace(req.ConfirmName) != patient.Name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patient name confirmation does not match"})
		return
	}

	t, err := h.service.Create(c.Request.Context(), caregiver, req.PatientID, req.RecipientEmail, req.Message)
	if err != nil {
		c.JSON(transferErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	h.notify(c.Request.Context(), t.ToCaregiverID, "transfer_created", t)
	c.JSON(http.StatusCreated, t)
}

// List returns the caller's incoming and outgoing transfers.
func (h *TransferHandler) List(c *gin.Context) {
	incoming, outgoing, err := h.service.List(c.Request.Context(), auth.CaregiverFrom(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incoming": incoming, "outgoing": outgoing})
}

func (h *TransferHandler) Accept(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer id"})
		return
	}

	caller := auth.CaregiverFrom(c)
	patientID, err := h.service.Accept(c.Request.Context(), caller.ID, transferID)
	if err != nil {
		c.JSON(transferErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	if t, terr := h.db.Transfer(c.Request.Context(), transferID); terr == nil && t != nil {
		h.notify(c.Request.Context(), t.FromCaregiverID, "transfer_accepted", t)
	}
	c.JSON(http.StatusOK, dto.TransferActionResponse{Status: "accepted", PatientID: &patientID})
}

func (h *TransferHandler) Reject(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer id"})
		return
	}

	if err := h.service.Reject(c.Request.Context(), auth.CaregiverFrom(c).ID, transferID); err != nil {
		c.JSON(transferErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	if t, terr := h.db.Transfer(c.Request.Context(), transferID); terr == nil && t != nil {
		h.notify(c.Request.Context(), t.FromCaregiverID, "transfer_rejected", t)
	}
	c.JSON(http.StatusOK, dto.TransferActionResponse{Status: "rejected"})
}

func (h *TransferHandler) Cancel(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer id"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), auth.CaregiverFrom(c).ID, transferID); err != nil {
		c.JSON(transferErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	if t, terr := h.db.Transfer(c.Request.Context(), transferID); terr == nil && t != nil {
		h.notify(c.Request.Context(), t.ToCaregiverID, "transfer_cancelled", t)
	}
	c.JSON(http.StatusOK, dto.TransferActionResponse{Status: "cancelled"})
}

// Briefing assembles the patient summary the recipient reviews before
// or after accepting.
func (h *TransferHandler) Briefing(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer id"})
		return
	}

	data, err := h.briefing.Build(c.Request.Context(), auth.CaregiverFrom(c).ID, transferID)
	if err != nil {
		c.JSON(briefingErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *TransferHandler) notify(ctx context.Context, caregiverID uuid.UUID, eventType string, payload interface{}) {
	if h.producer == nil {
		return
	}
	if err := h.producer.PublishTransfer(ctx, caregiverID.String(), gin.H{
		"type": eventType,
		"data": payload,
	}); err != nil {
		slog.Warn("publish transfer event failed", "type", eventType, "error", err)
	}
}

func transferErrStatus(err error) int {
	switch {
	case errors.Is(err, transfer.ErrInvalidEmail),
		errors.Is(err, transfer.ErrSelfTransfer):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrPatientNotOwned),
		errors.Is(err, transfer.ErrRecipientNotFound),
		errors.Is(err, transfer.ErrTransferNotFound):
		return http.StatusNotFound
	case errors.Is(err, transfer.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, transfer.ErrPendingExists),
		errors.Is(err, transfer.ErrAlreadyResponded),
		errors.Is(err, transfer.ErrPatientUnavailable):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func briefingErrStatus(err error) int {
	switch {
	case errors.Is(err, briefing.ErrTransferNotFound):
		return http.StatusNotFound
	case errors.Is(err, briefing.ErrNotRecipient):
		return http.StatusForbidden
	case errors.Is(err, briefing.ErrNotAvailable):
		return http.StatusConflict
	case errors.Is(err, briefing.ErrPatientGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
