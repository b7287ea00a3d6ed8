package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/memora/internal/auth"
	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/storage"
	"github.com/your-org/memora/pkg/dto"
)

type AuthHandler struct {
	db *storage.PostgresStore
}

func NewAuthHandler(db *storage.PostgresStore) *AuthHandler {
	return &AuthHandler{db: db}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := h.db.CaregiverByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	token, err := auth.NewToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate token failed"})
		return
	}

	caregiver := &models.Caregiver{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		APIToken:     token,
	}
	if err := h.db.CreateCaregiver(c.Request.Context(), caregiver); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.CaregiverResponse{
		ID:        caregiver.ID,
		Name:      caregiver.Name,
		Email:     caregiver.Email,
		Token:     caregiver.APIToken,
		CreatedAt: caregiver.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caregiver, err := h.db.CaregiverByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if caregiver == nil || !auth.CheckPassword(caregiver.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, dto.CaregiverResponse{
		ID:        caregiver.ID,
		Name:      caregiver.Name,
		Email:     caregiver.Email,
		Token:     caregiver.APIToken,
		CreatedAt: caregiver.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// Me returns the authenticated caregiver, token omitted.
func (h *AuthHandler) Me(c *gin.Context) {
	caregiver := auth.CaregiverFrom(c)
	if caregiver == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, dto.CaregiverResponse{
		ID:        caregiver.ID,
		Name:      caregiver.Name,
		Email:     caregiver.Email,
		CreatedAt: caregiver.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}
