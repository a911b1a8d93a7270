package models

import (
	"time"

	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	pstrings "campaign/pkg/platform/strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further Advance can change the job.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Payload is the message body sent to every recipient of a job. TestID and
// Variant are set for split-test sample and remainder jobs.
type Payload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	TestID  string `json:"test_id,omitempty"`
	Variant string `json:"variant,omitempty"`
}

func (p Payload) Validate() error {
	if p.Subject == "" {
		return dErrors.New(dErrors.CodeValidation, "payload subject is required")
	}
	if p.Body == "" {
		return dErrors.New(dErrors.CodeValidation, "payload body is required")
	}
	return nil
}

// Job is a durable batched send. Cursor is the index of the next recipient
// to process; everything before it has a recorded outcome.
//
// Invariants:
//   - 0 <= Cursor <= len(RecipientIDs)
//   - Sent + Failed + Skipped == Cursor
//   - RecipientIDs never contains duplicates
type Job struct {
	ID              id.JobID         `json:"id"`
	RecipientIDs    []id.RecipientID `json:"-"`
	Total           int              `json:"total"`
	ChunkSize       int              `json:"chunk_size"`
	Cursor          int              `json:"cursor"`
	Sent            int              `json:"sent"`
	Failed          int              `json:"failed"`
	Skipped         int              `json:"skipped"`
	Status          Status           `json:"status"`
	CancelRequested bool             `json:"cancel_requested"`
	Payload         Payload          `json:"payload"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	LastAdvancedAt  *time.Time       `json:"last_advanced_at,omitempty"`
}

// NewJob validates the request and de-duplicates recipients, keeping the
// first occurrence of each.
func NewJob(jobID id.JobID, recipients []id.RecipientID, chunkSize int, payload Payload, now time.Time) (*Job, error) {
	if chunkSize <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "chunk_size must be positive")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	ids := pstrings.Dedupe(recipients)
	if ids == nil {
		ids = []id.RecipientID{}
	}
	return &Job{
		ID:           jobID,
		RecipientIDs: ids,
		Total:        len(ids),
		ChunkSize:    chunkSize,
		Status:       StatusPending,
		Payload:      payload,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NextSlice returns the recipients of the next chunk.
func (j *Job) NextSlice() []id.RecipientID {
	end := min(j.Cursor+j.ChunkSize, len(j.RecipientIDs))
	return j.RecipientIDs[j.Cursor:end]
}

// Finish sets the terminal status once the cursor reaches the end. A job
// where every attempted delivery failed is failed; anything else completed.
func (j *Job) Finish() {
	if j.Sent == 0 && j.Failed > 0 {
		j.Status = StatusFailed
		return
	}
	j.Status = StatusCompleted
}

func (j *Job) Progress() Progress {
	return Progress{
		JobID:   j.ID,
		Status:  j.Status,
		Cursor:  j.Cursor,
		Total:   j.Total,
		Sent:    j.Sent,
		Failed:  j.Failed,
		Skipped: j.Skipped,
		Done:    j.Status.IsTerminal(),
	}
}

// Progress is the result of one Advance.
type Progress struct {
	JobID   id.JobID `json:"job_id"`
	Status  Status   `json:"status"`
	Cursor  int      `json:"cursor"`
	Total   int      `json:"total"`
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Done    bool     `json:"done"`
}
