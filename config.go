package assist

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig carries SDK defaults that can be tuned without code changes.
// Every field is overridable through ASSIST_* environment variables and,
// where an Option exists, the Option wins.
type envConfig struct {
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`
	StreamTimeout time.Duration `envconfig:"STREAM_TIMEOUT" default:"120s"`
	SyncInterval  time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	SyncMaxAge    time.Duration `envconfig:"SYNC_MAX_AGE" default:"15m"`
	QueueShards   int           `envconfig:"QUEUE_SHARDS" default:"2"`
	QueueSize     int           `envconfig:"QUEUE_SIZE" default:"256"`

	// Token seeds the default static credential provider. Leave empty when
	// a real provider is injected with WithCredentialProvider.
	Token string `envconfig:"TOKEN"`
}

func loadEnvConfig() (envConfig, error) {
	var cfg envConfig
	if err := envconfig.Process("ASSIST", &cfg); err != nil {
		return envConfig{}, fmt.Errorf("assist: load env config: %w", err)
	}
	return cfg, nil
}
