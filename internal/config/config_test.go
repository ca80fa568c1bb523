package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, time.Second, c.OpponentDelay)
	assert.Equal(t, 30*time.Minute, c.SessionIdleTimeout)
	assert.Equal(t, "eights_actions", c.HistorianQueueName)
	assert.Equal(t, 20, c.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, c.HistorianFlush)
	assert.Empty(t, c.RedisAddr)
	assert.Empty(t, c.DatabaseURL)

	ttl, err := c.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, ttl)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("OPPONENT_DELAY", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.Addr())
	assert.Equal(t, 250*time.Millisecond, c.OpponentDelay)
	assert.Equal(t, "redis:6379", c.RedisAddr)
	assert.Equal(t, 2, c.RedisDB)

	lvl, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lvl)

	ttl, err := c.TokenTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("token expiry", func(t *testing.T) {
		t.Setenv("TOKEN_EXPIRE_TIME", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("negative delay", func(t *testing.T) {
		t.Setenv("OPPONENT_DELAY", "-1s")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestOrigins(t *testing.T) {
	c := &Config{Env: "development", AllowedOrigins: "https://a.example"}
	assert.Equal(t, []string{"*"}, c.Origins())

	c.Env = "production"
	c.AllowedOrigins = "https://a.example, https://b.example,"
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Origins())
}
