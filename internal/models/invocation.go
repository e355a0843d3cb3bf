package models

import "time"

type Outcome string

const (
	OutcomeReplied          Outcome = "replied"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeRejected         Outcome = "rejected"
	OutcomeReplyFailed      Outcome = "reply_failed"
	OutcomeGenerationFailed Outcome = "generation_failed"
)

// Invocation records how one webhook request ended. It deliberately holds
// no prompt or answer text.
type Invocation struct {
	ID             string    `json:"id"`
	WebhookEventID string    `json:"webhook_event_id,omitempty"`
	Outcome        Outcome   `json:"outcome"`
	EventCount     int       `json:"event_count"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
