// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port     string `env:"PORT,default=8080"`
	Env      string `env:"EIGHTS_ENV,default=development"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// OpponentDelay paces the computer opponent.
	OpponentDelay time.Duration `env:"OPPONENT_DELAY,default=1s"`
	// SessionIdleTimeout evicts games nobody has touched for this long.
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT,default=30m"`
	SweepInterval      time.Duration `env:"SESSION_SWEEP_INTERVAL,default=1m"`

	// AllowedOrigins is a comma separated list used in production.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	// TokenExpire is "never", "0", empty, or a Go duration.
	TokenExpire string `env:"TOKEN_EXPIRE_TIME,default=72h"`

	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisDB            int           `env:"REDIS_DB,default=0"`
	HistorianQueueName string        `env:"HISTORIAN_QUEUE_NAME,default=eights_actions"`
	HistorianBatchSize int           `env:"HISTORIAN_BATCH_SIZE,default=20"`
	HistorianFlush     time.Duration `env:"HISTORIAN_FLUSH,default=500ms"`

	DatabaseURL string `env:"DATABASE_URL"`
}

// Load decodes the process environment into a Config.
func Load() (*Config, error) {
	var c Config
	if err := envdecode.Decode(&c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if c.OpponentDelay < 0 {
		return nil, fmt.Errorf("OPPONENT_DELAY must not be negative, got %s", c.OpponentDelay)
	}
	if _, err := c.Level(); err != nil {
		return nil, err
	}
	if _, err := c.TokenTTL(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// TokenTTL parses TokenExpire. Zero means tokens never expire.
func (c *Config) TokenTTL() (time.Duration, error) {
	switch c.TokenExpire {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenExpire)
	if err != nil {
		return 0, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

// Origins returns the CORS allow list. Outside production every origin is allowed.
func (c *Config) Origins() []string {
	if !c.Production() || c.AllowedOrigins == "" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
