package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// Store persists sessions. Save is the checkpoint primitive: callers write
// after every state transition, and a failed Save aborts the turn.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
}
