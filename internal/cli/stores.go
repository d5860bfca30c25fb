package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/file"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/memory"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/redis"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/sqlite"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/persistence/middleware"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

const (
	defaultRedisPrefix = "toppling:run:"
	runLockTTL         = 10 * time.Minute
	lockWait           = 5 * time.Second
)

// OpenedStore is a run store plus whatever must be released with it.
type OpenedStore struct {
	ports.RunStore
	closers []io.Closer
	unlock  ports.UnlockFunc
}

// Close releases the lock, if any, and the store connection.
func (s *OpenedStore) Close(ctx context.Context) error {
	var err error
	if s.unlock != nil {
		err = s.unlock(ctx)
	}
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenStore opens the store described by cfg, sealing its blocks when cfg has an encryption
// key. Redis stores are shared between processes, so lock takes the run lock on them; other
// kinds ignore it.
func OpenStore(ctx context.Context, cfg config.StoreConfig, lock bool) (*OpenedStore, error) {
	enc, err := cfg.Encryption()
	if err != nil {
		return nil, err
	}
	s, err := openBackend(ctx, cfg, lock)
	if err != nil || enc == nil {
		return s, err
	}
	mw, err := middleware.NewEncryptionMiddleware(*enc)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.RunStore = mw(s.RunStore)
	return s, nil
}

func openBackend(ctx context.Context, cfg config.StoreConfig, lock bool) (*OpenedStore, error) {
	switch cfg.Kind {
	case config.StoreMemory, "":
		return &OpenedStore{RunStore: memory.NewStore()}, nil
	case config.StoreFile:
		return &OpenedStore{RunStore: file.New(cfg.Dir)}, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &OpenedStore{RunStore: s, closers: []io.Closer{s}}, nil
	case config.StoreRedis:
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = defaultRedisPrefix
		}
		s := redis.New(cfg.RedisAddr, "", 0, redis.WithPrefix(prefix))
		opened := &OpenedStore{RunStore: s, closers: []io.Closer{s}}
		if lock {
			lctx, cancel := context.WithTimeout(ctx, lockWait)
			unlock, err := redis.NewLocker(s.Client(), prefix).Lock(lctx, "owner", runLockTTL)
			cancel()
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("run at %s is busy: %w", prefix, err)
			}
			opened.unlock = unlock
		}
		return opened, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}
