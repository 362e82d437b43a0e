package model

import "time"

// Notification is the history entry for one message relayed to the chat
// webhook.
type Notification struct {
	// ID is the unique identifier for this delivery.
	ID string `json:"id" db:"id"`

	// RecordID links this notification to the originating Notion page.
	RecordID string `json:"record_id" db:"record_id"`

	// Kind is the record kind the message was built for.
	Kind Kind `json:"kind" db:"kind"`

	// Message is the exact content posted to the webhook.
	Message string `json:"message" db:"message"`

	// SentAt is when the webhook accepted the message.
	SentAt time.Time `json:"sent_at" db:"sent_at"`
}
