package models

import (
	"math"
	"time"

	dmodels "campaign/internal/dispatch/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSampling  Outcome = "sampling"
	OutcomeDecided   Outcome = "decided"
	OutcomeCompleted Outcome = "completed"
)

type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

type Metric string

const (
	MetricOpenRate  Metric = "open_rate"
	MetricClickRate Metric = "click_rate"
)

func (m Metric) IsValid() bool {
	return m == MetricOpenRate || m == MetricClickRate
}

// SplitTest sends two variants to equal random samples, then sends the
// better one to everyone else.
//
// Invariants:
//   - 0 < SampleFraction <= 1
//   - RemainderJob is set only once Outcome is decided, and only once
//   - Winner is empty until decided
type SplitTest struct {
	ID                  id.SplitTestID   `json:"id"`
	VariantA            dmodels.Payload  `json:"variant_a"`
	VariantB            dmodels.Payload  `json:"variant_b"`
	SampleFraction      float64          `json:"sample_fraction"`
	Metric              Metric           `json:"metric"`
	Segment             string           `json:"segment,omitempty"`
	ChunkSize           int              `json:"chunk_size"`
	SampleSize          int              `json:"sample_size"`
	SampleJobA          id.JobID         `json:"sample_job_a"`
	SampleJobB          id.JobID         `json:"sample_job_b"`
	RemainderRecipients []id.RecipientID `json:"-"`
	Outcome             Outcome          `json:"outcome"`
	Winner              Variant          `json:"winner,omitempty"`
	RemainderJob        *id.JobID        `json:"remainder_job,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	DecidedAt           *time.Time       `json:"decided_at,omitempty"`
}

// Payload returns the payload for v, tagged with the test id and variant.
func (t *SplitTest) Payload(v Variant) dmodels.Payload {
	p := t.VariantA
	if v == VariantB {
		p = t.VariantB
	}
	p.TestID = t.ID.String()
	p.Variant = string(v)
	return p
}

type CreateRequest struct {
	VariantA       dmodels.Payload `json:"variant_a"`
	VariantB       dmodels.Payload `json:"variant_b"`
	SampleFraction float64         `json:"sample_fraction"`
	Metric         Metric          `json:"metric"`
	Segment        string          `json:"segment,omitempty"`
	ChunkSize      int             `json:"chunk_size"`
}

func (r CreateRequest) Validate() error {
	if math.IsNaN(r.SampleFraction) || r.SampleFraction <= 0 || r.SampleFraction > 1 {
		return dErrors.New(dErrors.CodeValidation, "sample_fraction must be in (0, 1]")
	}
	if !r.Metric.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "metric must be open_rate or click_rate")
	}
	if r.ChunkSize <= 0 {
		return dErrors.New(dErrors.CodeValidation, "chunk_size must be positive")
	}
	if err := r.VariantA.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "variant_a: "+dErrors.Message(err))
	}
	if err := r.VariantB.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "variant_b: "+dErrors.Message(err))
	}
	return nil
}

// SampleSize is the per-variant sample for n eligible recipients.
func SampleSize(n int, fraction float64) int {
	return int(math.Floor(float64(n) * fraction / 2))
}

// Score is the engagement rate of one variant.
type Score struct {
	Variant Variant `json:"variant"`
	Engaged int     `json:"engaged"`
	Rate    float64 `json:"rate"`
}

// PickWinner returns the variant with the strictly higher rate; ties go to A.
func PickWinner(a, b Score) Variant {
	if b.Rate > a.Rate {
		return VariantB
	}
	return VariantA
}

// Decision is the result of Decide.
type Decision struct {
	TestID       id.SplitTestID `json:"test_id"`
	Winner       Variant        `json:"winner"`
	ScoreA       Score          `json:"score_a"`
	ScoreB       Score          `json:"score_b"`
	RemainderJob id.JobID       `json:"remainder_job"`
}
