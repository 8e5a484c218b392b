package kafka

import "time"

// DealEvent is the envelope published on every lifecycle topic. Consumers
// are the sitemap regenerator and the page-cache invalidator; both key off
// the slug.
type DealEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	DealID        string    `json:"deal_id"`
	Slug          string    `json:"slug"`
	Status        string    `json:"status"`
	UserID        string    `json:"user_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
