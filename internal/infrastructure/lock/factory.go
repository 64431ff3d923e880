package lock

import (
	"fmt"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New builds the locker the configuration selects. rdb may be nil for the
// local backend.
func New(cfg config.LockConfig, rdb redis.UniversalClient, logger *zap.Logger) (uow.Locker, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalLocker(cfg.Wait), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		return NewRedisLocker(rdb, cfg.Wait, cfg.TTL, logger), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}
