package models

import (
	"time"

	"github.com/google/uuid"
)

// Memory is a titled, dated event record. People is free text
// ("Adnan, Amma"); per-photo tags live on MemoryPhoto.
type Memory struct {
	ID          uuid.UUID     `json:"id"`
	PatientID   uuid.UUID     `json:"patient_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        time.Time     `json:"date"`
	Event       string        `json:"event"`
	Location    string        `json:"location"`
	People      string        `json:"people"`
	Importance  int           `json:"importance"` // 1-5
	Photos      []MemoryPhoto `json:"photos,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MemoryPhoto carries photo-level people tags, a different granularity
// than Memory.People.
type MemoryPhoto struct {
	ID          uuid.UUID `json:"id"`
	MemoryID    uuid.UUID `json:"memory_id"`
	PhotoURL    string    `json:"photo_url"`
	PhotoIndex  int       `json:"photo_index"`
	People      []string  `json:"people"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type FamilyMember struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	PhotoURLs    []string  `json:"photo_urls"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FaceEmbedding is a reference embedding for one family-member photo.
// The portal only stores these; matching happens in the external
// recognition service.
type FaceEmbedding struct {
	ID             uuid.UUID `json:"id"`
	FamilyMemberID uuid.UUID `json:"family_member_id"`
	Embedding      []float32 `json:"-"`
	Quality        float32   `json:"quality"`
	SourceKey      string    `json:"source_key"`
	CreatedAt      time.Time `json:"created_at"`
}
