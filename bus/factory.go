package bus

import (
	"fmt"

	"go.uber.org/zap"
)

// BackendType selects the Bus implementation.
type BackendType string

const (
	BackendFile  BackendType = "file"
	BackendRedis BackendType = "redis"
)

// Config selects and configures a Bus backend.
type Config struct {
	Backend BackendType
	BaseDir string
	Redis   RedisConfig
}

// New constructs a Bus from configuration, defaulting to the file
// backend.
func New(cfg Config, logger *zap.Logger) (Bus, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisBus(cfg.Redis, logger)
	case "", BackendFile:
		return NewFileBus(cfg.BaseDir, logger)
	default:
		return nil, fmt.Errorf("unknown message bus backend: %s", cfg.Backend)
	}
}
