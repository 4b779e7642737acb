package workqueue

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config sizes the queue and its retry policy. Zero values fall back to the
// defaults applied in NewQueue.
type Config struct {
	Shards         int           `envconfig:"SHARDS" default:"2"`
	QueueSize      int           `envconfig:"QUEUE_SIZE" default:"128"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"4"`
	BaseBackoff    time.Duration `envconfig:"BASE_BACKOFF" default:"100ms"`
	MaxInterval    time.Duration `envconfig:"MAX_INTERVAL" default:"10s"`

	// ErrorHandler receives errors from jobs whose retries are exhausted or
	// whose context was cancelled. May be nil.
	ErrorHandler func(error) `ignored:"true"`
}

// LoadConfig reads queue settings from WQ_-prefixed environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("WQ", &cfg); err != nil {
		return Config{}, fmt.Errorf("workqueue: load config: %w", err)
	}
	return cfg, nil
}
