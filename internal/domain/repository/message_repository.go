package repository

import (
	"context"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
)

// MessageRepository defines the interface for chat message persistence.
type MessageRepository interface {
	Insert(ctx context.Context, m *entity.ChatMessage) error
	// Recent returns up to limit messages ordered oldest-first, with sender
	// names resolved.
	Recent(ctx context.Context, limit int) ([]entity.ChatMessage, error)
}
