package cli

import (
	"fmt"

	"github.com/aretw0/graff/internal/adapters/file"
	"github.com/aretw0/graff/internal/config"
	"github.com/aretw0/graff/pkg/adapters/memory"
	"github.com/aretw0/graff/pkg/adapters/redis"
	"github.com/aretw0/graff/pkg/ports"
)

// lockPrefix namespaces Redis locks when no prefix is configured.
const lockPrefix = "graff:"

// Storage is where session mirrors live between commands. Locker is only
// set for shared backends.
type Storage struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases connections held by the store.
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage builds the configured snapshot store.
func OpenStorage(cfg config.Store) (*Storage, error) {
	switch cfg.Kind {
	case config.StoreMemory:
		return &Storage{Store: memory.NewStore()}, nil

	case config.StoreFile:
		format := file.Format(cfg.Format)
		switch format {
		case "":
			format = file.FormatJSON
		case file.FormatJSON, file.FormatYAML:
		default:
			return nil, fmt.Errorf("unknown snapshot format %q", cfg.Format)
		}
		return &Storage{Store: file.New(cfg.Path, file.WithFormat(format))}, nil

	case config.StoreRedis:
		var opts []redis.Option
		prefix := lockPrefix
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
			prefix = cfg.Redis.Prefix
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return &Storage{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), prefix),
			close:  store.Client().Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
