package models

import (
	"time"

	"github.com/google/uuid"
)

type TherapySession struct {
	ID        uuid.UUID       `json:"id"`
	PatientID uuid.UUID       `json:"patient_id"`
	Date      time.Time       `json:"date"`
	Duration  int             `json:"duration"` // minutes
	Mood      string          `json:"mood"`     // happy, neutral, sad, confused
	Notes     string          `json:"notes"`
	Completed bool            `json:"completed"`
	Memories  []SessionMemory `json:"memories,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionMemory scores the recall of one memory within a session.
type SessionMemory struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	MemoryID    uuid.UUID `json:"memory_id"`
	RecallScore int       `json:"recall_score"` // 1-5
	Response    string    `json:"response"`
	Notes       string    `json:"notes"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}
