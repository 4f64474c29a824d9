package api

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the API service.
type Config struct {
	Addr             string        `env:"ADDR,default=:8080"`
	DBDSN            string        `env:"DB_DSN,required"`
	NATSURL          string        `env:"NATS_URL,default=nats://localhost:4222"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	PresetsPath      string        `env:"TIMER_PRESETS_PATH"`
	ExportBucket     string        `env:"EXPORT_BUCKET"`
	ExportURLTTL     time.Duration `env:"EXPORT_URL_TTL,default=15m"`
	ChatServiceURL   string        `env:"CHAT_SERVICE_URL"`
	StartRatePerMin  int           `env:"SESSION_START_RATE_PER_MIN,default=10"`
	GlobalRatePerMin int           `env:"GLOBAL_RATE_PER_MIN,default=300"`
}

// LoadConfig returns a Config populated from environment variables.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
