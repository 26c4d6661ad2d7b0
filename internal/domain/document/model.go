package document

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of an uploaded document
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known document status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Document represents an uploaded statement file and its processing state
type Document struct {
	ID                  uuid.UUID  `json:"id"`
	Filename            string     `json:"filename"`
	OriginalName        string     `json:"original_name"`
	SizeBytes           int64      `json:"size_bytes"`
	MimeType            string     `json:"mime_type"`
	Status              Status     `json:"status"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
	UploadedAt          time.Time  `json:"uploaded_at"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
}
