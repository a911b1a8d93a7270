package models

import (
	"time"

	id "campaign/pkg/domain"
)

// Recipient is a mailing-list subscriber.
//
// Invariants:
//   - Eligible iff Verified and not OptedOut
//   - OptedOut never returns to false once set
//   - recipients are never deleted, so the opt-out record persists
type Recipient struct {
	ID           id.RecipientID `json:"id"`
	Address      string         `json:"address"`
	Verified     bool           `json:"verified"`
	OptedOut     bool           `json:"opted_out"`
	Segments     []string       `json:"segments"`
	SubscribedAt time.Time      `json:"subscribed_at"`
	VerifiedAt   *time.Time     `json:"verified_at,omitempty"`
	OptedOutAt   *time.Time     `json:"opted_out_at,omitempty"`
}

func NewRecipient(recipientID id.RecipientID, address string, segments []string, now time.Time) *Recipient {
	if segments == nil {
		segments = []string{}
	}
	return &Recipient{
		ID:           recipientID,
		Address:      address,
		Segments:     segments,
		SubscribedAt: now,
	}
}

// Eligible reports whether the recipient may be sent mail.
func (r *Recipient) Eligible() bool {
	return r.Verified && !r.OptedOut
}

// InSegment reports membership of segment. The empty segment matches all.
func (r *Recipient) InSegment(segment string) bool {
	if segment == "" {
		return true
	}
	for _, s := range r.Segments {
		if s == segment {
			return true
		}
	}
	return false
}

// Verify marks the address confirmed. It reports whether anything changed.
func (r *Recipient) Verify(now time.Time) bool {
	if r.Verified {
		return false
	}
	r.Verified = true
	r.VerifiedAt = &now
	return true
}

// OptOut is one-way. It reports whether anything changed.
func (r *Recipient) OptOut(now time.Time) bool {
	if r.OptedOut {
		return false
	}
	r.OptedOut = true
	r.OptedOutAt = &now
	return true
}

type SubscribeRequest struct {
	Address  string   `json:"address"`
	Segments []string `json:"segments"`
}
