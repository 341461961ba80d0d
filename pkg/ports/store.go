package ports

import (
	"context"

	"github.com/aretw0/graff/pkg/domain"
)

// SnapshotStore persists session mirrors by session name.
type SnapshotStore interface {
	// Save persists the mirror, replacing any previous snapshot.
	Save(ctx context.Context, name string, session *domain.Session) error

	// Load retrieves a mirror.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, name string) (*domain.Session, error)

	// Delete removes a snapshot. Deleting a missing session is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
