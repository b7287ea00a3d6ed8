package models

import (
	"time"

	"github.com/google/uuid"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferAccepted  TransferStatus = "accepted"
	TransferRejected  TransferStatus = "rejected"
	TransferCancelled TransferStatus = "cancelled"
	TransferExpired   TransferStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s TransferStatus) Terminal() bool {
	return s == TransferAccepted || s == TransferRejected || s == TransferCancelled
}

// PatientTransfer proposes reassigning a patient from one caregiver to
// another. A pending transfer past ExpiresAt is expired regardless of
// the stored status; readers must compute that.
type PatientTransfer struct {
	ID              uuid.UUID      `json:"id"`
	PatientID       uuid.UUID      `json:"patient_id"`
	FromCaregiverID uuid.UUID      `json:"from_caregiver_id"`
	ToCaregiverID   uuid.UUID      `json:"to_caregiver_id"`
	Status          TransferStatus `json:"status"`
	Message         string         `json:"message"`
	ExpiresAt       time.Time      `json:"expires_at"`
	RespondedAt     *time.Time     `json:"responded_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// EffectiveStatus folds read-time expiry into the stored status.
func (t *PatientTransfer) EffectiveStatus(now time.Time) TransferStatus {
	if t.Status == TransferPending && now.After(t.ExpiresAt) {
		return TransferExpired
	}
	return t.Status
}
