package models

import (
	"time"

	"github.com/google/uuid"
)

// ErrorKind is the closed set of recognition failure kinds returned by
// the external recognition function.
type ErrorKind string

const (
	ErrNoFace          ErrorKind = "no_face"
	ErrLowQualityFace  ErrorKind = "low_quality_face"
	ErrNoFamilyData    ErrorKind = "no_family_data"
	ErrProcessingError ErrorKind = "processing_error"
	ErrUnknownPerson   ErrorKind = "unknown_person"
	ErrDetectionError  ErrorKind = "detection_error"
)

// Known reports whether k is one of the defined failure kinds.
func (k ErrorKind) Known() bool {
	switch k {
	case ErrNoFace, ErrLowQualityFace, ErrNoFamilyData,
		ErrProcessingError, ErrUnknownPerson, ErrDetectionError:
		return true
	}
	return false
}

// Identity is a matched family member.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Confidence   float64   `json:"confidence"` // [0,1]
}

// RecognitionResult is the outcome of one recognition attempt.
// Immutable once produced. Identity is set iff Matched; ErrorKind iff
// not.
type RecognitionResult struct {
	Matched    bool      `json:"matched"`
	Identity   *Identity `json:"identity,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// RecognitionEvent is the persisted log record of one attempt, published
// by the companion and consumed by the portal.
type RecognitionEvent struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	Matched    bool       `json:"matched"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	CreatedAt  time.Time  `json:"created_at"`
}
