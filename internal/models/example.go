package models

import (
	"time"

	"github.com/google/uuid"
)

// Example is one gallery entry: an uploaded photo or video plus its
// moderation and processing state.
//
// Exactly one of the following holds at any time:
//   - Processing == true                      (pipeline owns the record)
//   - ProcessingError != ""                   (last attempt failed)
//   - File != "" && ProcessingError == ""     (processed, displayable)
type Example struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`

	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	Processing      bool   `json:"processing"`
	ProcessingError string `json:"processing_error,omitempty"`
	RetryCount      int    `json:"retry_count"`

	// PendingFile names the upload in the pending area; set until the
	// pipeline succeeds, kept on failure so an admin retry has a source.
	PendingFile string `json:"pending_file,omitempty"`

	// File/Thumb are blob storage keys. Thumb is set only on success;
	// File is also kept on a failure that happened after the upload
	// reached permanent storage, so a retry still has a source.
	File  string `json:"file,omitempty"`
	Thumb string `json:"thumb,omitempty"`

	// Duration in seconds, set only for video when probing succeeded.
	Duration float64 `json:"duration,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Failed reports whether the last processing attempt ended in an error.
func (e *Example) Failed() bool {
	return !e.Processing && e.ProcessingError != ""
}

// Processed reports whether the example has displayable media.
func (e *Example) Processed() bool {
	return !e.Processing && e.ProcessingError == "" && e.File != ""
}
