package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/graff/internal/logging"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to session mirrors and persists them after
// confirmed mutations. Locks are reference counted and dropped when unused.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active per-session locks

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given snapshot store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu and call release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// Load retrieves a stored mirror.
func (m *Manager) Load(ctx context.Context, name string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, name)
		return err
	})
	return s, err
}

// LoadOrCreate loads a mirror, creating and persisting an empty one if none exists.
func (m *Manager) LoadOrCreate(ctx context.Context, name string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		s, err = m.loadOrCreate(ctx, name)
		return err
	})
	return s, err
}

func (m *Manager) loadOrCreate(ctx context.Context, name string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	s = domain.NewSession(name)
	if err := m.store.Save(ctx, name, s); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return s, nil
}

// loadOrNew is loadOrCreate without the save: a fresh mirror is only
// persisted once a mutation on it is confirmed.
func (m *Manager) loadOrNew(ctx context.Context, name string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, name)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return s, nil
}

// Save persists a mirror.
func (m *Manager) Save(ctx context.Context, s *domain.Session) error {
	return m.WithLock(ctx, s.Name(), func(ctx context.Context) error {
		return m.store.Save(ctx, s.Name(), s)
	})
}

// Delete removes a stored mirror. The backend session is not affected.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// AddVariable loads the stored mirror, submits v and persists the mirror only
// if the backend confirmed.
func (m *Manager) AddVariable(ctx context.Context, ep Requester, name string, v domain.Variable) (Result, error) {
	return m.mutate(ctx, name, func(s *domain.Session) (Result, error) {
		return AddVariable(ctx, ep, s, v)
	})
}

// AddFactor is the factor counterpart of AddVariable.
func (m *Manager) AddFactor(ctx context.Context, ep Requester, name string, f domain.Factor) (Result, error) {
	return m.mutate(ctx, name, func(s *domain.Session) (Result, error) {
		return AddFactor(ctx, ep, s, f)
	})
}

func (m *Manager) mutate(ctx context.Context, name string, op func(*domain.Session) (Result, error)) (Result, error) {
	var res Result
	var opErr error
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		s, err := m.loadOrNew(ctx, name)
		if err != nil {
			return err
		}
		res, opErr = op(s)
		if opErr != nil || !res.Confirmed {
			return nil
		}
		if err := m.store.Save(ctx, name, s); err != nil {
			return fmt.Errorf("persist session %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, opErr
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
