package models

import (
	"time"

	id "campaign/pkg/domain"
)

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Delivery is the recorded outcome for one recipient of a job.
type Delivery struct {
	JobID       id.JobID       `json:"job_id"`
	RecipientID id.RecipientID `json:"recipient_id"`
	Position    int            `json:"position"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Message is what a transport hands to the mail subsystem.
type Message struct {
	JobID       id.JobID       `json:"job_id"`
	RecipientID id.RecipientID `json:"recipient_id"`
	Address     string         `json:"address"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	TestID      string         `json:"test_id,omitempty"`
	Variant     string         `json:"variant,omitempty"`
}

type SubmitRequest struct {
	RecipientIDs []id.RecipientID `json:"recipient_ids"`
	ChunkSize    int              `json:"chunk_size"`
	Payload      Payload          `json:"payload"`
}
