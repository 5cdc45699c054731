package entity

import "time"

// ChatMessage is a persisted chat line. Body is stored HTML-escaped; messages
// are never mutated or deleted after creation.
type ChatMessage struct {
	ID         string
	SenderID   string
	SenderName string
	Body       string
	CreatedAt  time.Time
}
