package models

import (
	"time"

	smodels "campaign/internal/splittest/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

type Kind string

const (
	KindOpen  Kind = "open"
	KindClick Kind = "click"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindOpen, KindClick:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "kind must be open or click")
}

func ParseVariant(s string) (smodels.Variant, error) {
	switch v := smodels.Variant(s); v {
	case smodels.VariantA, smodels.VariantB:
		return v, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "variant must be A or B")
}

// KindsFor lists the event kinds that count toward metric. A click counts as
// an open since the message had to be opened first.
func KindsFor(metric smodels.Metric) []Kind {
	if metric == smodels.MetricClickRate {
		return []Kind{KindClick}
	}
	return []Kind{KindOpen, KindClick}
}

// Event is one engagement signal. Repeats of the same
// (test, variant, kind, recipient) are recorded once.
type Event struct {
	TestID      id.SplitTestID  `json:"test_id"`
	Variant     smodels.Variant `json:"variant"`
	RecipientID id.RecipientID  `json:"recipient_id"`
	Kind        Kind            `json:"kind"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
