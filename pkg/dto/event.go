package dto

import "encoding/json"

// WSEvent is a WebSocket message for real-time delivery to portal
// clients.
type WSEvent struct {
	Type      string          `json:"type"` // recognition_event, transfer_update
	PatientID string          `json:"patient_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}
