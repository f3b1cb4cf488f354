package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/session"
	"github.com/colonyops/foreman/internal/data/db"
)

// SessionStore implements session.Store using SQLite. Sessions persist as
// JSON snapshots with an optimistic version column, so a checkpoint is one
// write regardless of how much the turn changed.
type SessionStore struct {
	db *db.DB
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *db.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save persists the session. New sessions insert at version 1; existing
// ones update only if the stored version matches the one the session was
// loaded with. Returns ErrVersionConflict when it doesn't.
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	now := time.Now().UTC()
	sess.UpdatedAt = now

	prev := sess.Version
	sess.Version++

	snapshot, err := json.Marshal(sess)
	if err != nil {
		sess.Version = prev
		return fmt.Errorf("encode session %q: %w", sess.ID, err)
	}

	if prev == 0 {
		err := s.db.Queries().CreateSession(ctx, db.CreateSessionParams{
			ID:        sess.ID,
			Snapshot:  string(snapshot),
			Version:   sess.Version,
			CreatedAt: sess.CreatedAt.UnixNano(),
			UpdatedAt: now.UnixNano(),
		})
		if err != nil {
			sess.Version = prev
			if isUniqueConstraintError(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("create session %q: %w", sess.ID, err)
		}
		return nil
	}

	affected, err := s.db.Queries().UpdateSession(ctx, db.UpdateSessionParams{
		Snapshot:    string(snapshot),
		Version:     sess.Version,
		UpdatedAt:   now.UnixNano(),
		ID:          sess.ID,
		PrevVersion: prev,
	})
	if err != nil {
		sess.Version = prev
		return fmt.Errorf("update session %q: %w", sess.ID, err)
	}
	if affected == 0 {
		sess.Version = prev
		return ErrVersionConflict
	}
	return nil
}

// Load returns the session with the given id, or session.ErrNotFound.
func (s *SessionStore) Load(ctx context.Context, id string) (*session.Session, error) {
	row, err := s.db.Queries().GetSession(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("get session %q: %w", id, err)
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(row.Snapshot), &sess); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", id, err)
	}
	sess.Version = row.Version
	return &sess, nil
}

// ListIDs returns all session ids, most recently updated first.
func (s *SessionStore) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := s.db.Queries().ListSessionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// Delete removes a session. Returns session.ErrNotFound if it doesn't exist.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	affected, err := s.db.Queries().DeleteSession(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	if affected == 0 {
		return session.ErrNotFound
	}
	return nil
}
