package dto

import "github.com/google/uuid"

// CreateTransferRequest initiates a patient handoff. ConfirmName must
// equal the patient's name exactly; the mismatch check lives in the
// handler because it is a UX safety gate, not a protocol rule.
type CreateTransferRequest struct {
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	RecipientEmail string    `json:"recipient_email" binding:"required"`
	Message        string    `json:"message"`
	ConfirmName    string    `json:"confirm_name" binding:"required"`
}

type TransferActionResponse struct {
	Status    string     `json:"status"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}
