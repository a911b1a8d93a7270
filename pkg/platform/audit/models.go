// Package audit records operator-visible state changes: tier changes, job
// lifecycle, split-test decisions and recipient opt-outs.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers consent-relevant recipient changes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers changes to who may read what.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine delivery and cache activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Subject names
// the affected entity, e.g. "document:<id>" or "job:<id>".
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	ActorID   string
}

type AuditEvent string

const (
	EventDocumentCreated       AuditEvent = "document_created"
	EventDocumentUpdated       AuditEvent = "document_updated"
	EventDocumentTierChanged   AuditEvent = "document_tier_changed"
	EventCacheGroupInvalidated AuditEvent = "cache_group_invalidated"

	EventJobSubmitted AuditEvent = "job_submitted"
	EventJobCancelled AuditEvent = "job_cancelled"
	EventJobFinished  AuditEvent = "job_finished"

	EventSplitTestCreated   AuditEvent = "split_test_created"
	EventSplitTestDecided   AuditEvent = "split_test_decided"
	EventSplitTestCompleted AuditEvent = "split_test_completed"

	EventRecipientSubscribed AuditEvent = "recipient_subscribed"
	EventRecipientVerified   AuditEvent = "recipient_verified"
	EventRecipientOptedOut   AuditEvent = "recipient_opted_out"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRecipientSubscribed: CategoryCompliance,
	EventRecipientVerified:   CategoryCompliance,
	EventRecipientOptedOut:   CategoryCompliance,

	EventDocumentTierChanged: CategorySecurity,

	EventDocumentCreated:       CategoryOperations,
	EventDocumentUpdated:       CategoryOperations,
	EventCacheGroupInvalidated: CategoryOperations,
	EventJobSubmitted:          CategoryOperations,
	EventJobCancelled:          CategoryOperations,
	EventJobFinished:           CategoryOperations,
	EventSplitTestCreated:      CategoryOperations,
	EventSplitTestDecided:      CategoryOperations,
	EventSplitTestCompleted:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
