package store

import (
	"fmt"

	"go.uber.org/zap"
)

// BackendType selects the TaskStore implementation.
type BackendType string

const (
	BackendFile  BackendType = "file"
	BackendRedis BackendType = "redis"
)

// Config selects and configures a TaskStore backend.
type Config struct {
	Backend BackendType
	BaseDir string
	Redis   RedisConfig
}

// New constructs a TaskStore from configuration, defaulting to the file
// backend.
func New(cfg Config, logger *zap.Logger) (TaskStore, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisTaskStore(cfg.Redis, logger)
	case "", BackendFile:
		return NewFileTaskStore(cfg.BaseDir, logger)
	default:
		return nil, fmt.Errorf("unknown task store backend: %s", cfg.Backend)
	}
}
