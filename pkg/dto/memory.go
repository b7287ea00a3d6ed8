package dto

import "time"

type CreateMemoryRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" binding:"required"`
	Event       string    `json:"event"`
	Location    string    `json:"location"`
	People      string    `json:"people"`
	Importance  int       `json:"importance" binding:"required,min=1,max=5"`
}

// SessionMemoryInput is one reviewed memory inside a therapy session
// submission.
type SessionMemoryInput struct {
	MemoryID    string `json:"memory_id" binding:"required,uuid"`
	RecallScore int    `json:"recall_score" binding:"required,min=1,max=5"`
	Response    string `json:"response"`
	Notes       string `json:"notes"`
}

type CreateSessionRequest struct {
	Date      time.Time            `json:"date" binding:"required"`
	Duration  int                  `json:"duration" binding:"min=0"`
	Mood      string               `json:"mood"`
	Notes     string               `json:"notes"`
	Completed bool                 `json:"completed"`
	Memories  []SessionMemoryInput `json:"memories"`
}

// GenerateQuestionsRequest carries the photo context forwarded to the
// question-generation function.
type GenerateQuestionsRequest struct {
	PhotoURL    string   `json:"photo_url"`
	MemoryTitle string   `json:"memory_title"`
	Event       string   `json:"event"`
	Location    string   `json:"location"`
	People      []string `json:"people"`
	Description string   `json:"description"`
}
