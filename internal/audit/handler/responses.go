package handler

import (
	"time"

	"campaign/pkg/platform/audit"
)

type EventResponse struct {
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	ActorID   string    `json:"actor_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type TrailResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

func toTrailResponse(events []audit.Event) TrailResponse {
	out := TrailResponse{Events: make([]EventResponse, 0, len(events)), Total: len(events)}
	for _, e := range events {
		out.Events = append(out.Events, EventResponse{
			Category:  string(e.Category),
			Action:    e.Action,
			Subject:   e.Subject,
			ActorID:   e.ActorID,
			RequestID: e.RequestID,
			Decision:  e.Decision,
			Reason:    e.Reason,
			Timestamp: e.Timestamp,
		})
	}
	return out
}
