package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// SetOTP stores a new challenge hash and expiry, replacing any prior one.
	SetOTP(ctx context.Context, userID, hash string, expiresAt time.Time) error
	// ConsumeOTP atomically clears the challenge identified by hash and reports
	// whether it was still live. Two concurrent verifies for the same challenge
	// observe at most one true.
	ConsumeOTP(ctx context.Context, userID, hash string) (bool, error)
}
