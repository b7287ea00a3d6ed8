package models

import (
	"time"

	"github.com/google/uuid"
)

type Caregiver struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	APIToken     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Patient struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Diagnosis   string    `json:"diagnosis"`
	MMSEScore   *int      `json:"mmse_score,omitempty"`
	Notes       string    `json:"notes"`
	PhotoURL    string    `json:"photo_url"`
	CaregiverID uuid.UUID `json:"caregiver_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
