package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a session mirror across processes
// that share one backend session.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or the context is done.
	// The lock expires after ttl if it is never released.
	// The returned UnlockFunc MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
