package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"SPY", "QQQ", "EEM"}, c.Engine.Tickers)
	assert.Equal(t, 3, c.MarketData.Retries)
	assert.Equal(t, 5*time.Second, c.MarketData.RetryDelay)
	assert.Equal(t, time.Minute, c.Live.Interval)
	assert.Equal(t, "2020-01-01", c.History.Start)
	assert.Equal(t, 14, c.Indicators.RSI)
	assert.Equal(t, 2.0, c.Indicators.BollingerK)
	assert.Equal(t, "engine-logs", c.Kafka.Topics.Logs)
	assert.NoError(t, c.Validate())
}

func TestParse(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		c, err := Parse([]byte(`
environment: test
engine:
  tickers: [SPY]
  workers: 2
live:
  interval: 30s
signals:
  rsi_oversold: 25
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"SPY"}, c.Engine.Tickers)
		assert.Equal(t, 2, c.Engine.Workers)
		assert.Equal(t, 30*time.Second, c.Live.Interval)
		assert.Equal(t, 25.0, c.Signals.RSIOversold)
		assert.Equal(t, 70.0, c.Signals.RSIOverbought)
	})

	t.Run("enabled sinks need their endpoints", func(t *testing.T) {
		_, err := Parse([]byte("kafka:\n  enabled: true\n"))
		assert.Error(t, err)
		_, err = Parse([]byte("postgres:\n  enabled: true\n"))
		assert.Error(t, err)
	})

	t.Run("bad history start", func(t *testing.T) {
		_, err := Parse([]byte("history:\n  start: 01/01/2020\n"))
		assert.Error(t, err)
	})

	t.Run("inverted RSI bands", func(t *testing.T) {
		_, err := Parse([]byte("signals:\n  rsi_oversold: 80\n  rsi_overbought: 20\n"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("engine: ["))
		assert.Error(t, err)
	})
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: development\n"), 0o644))

	t.Setenv("TICKERS", "spy, QQQ ,")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"spy", "QQQ"}, c.Engine.Tickers)
	assert.True(t, c.Postgres.Enabled)
	assert.Equal(t, "debug", c.Log.Level)
	assert.False(t, c.Kafka.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file", c.Engine.Source)
	assert.Equal(t, time.Minute, c.Cache.MinRefresh)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"SPY", "QQQ", "EEM"}, c.StreamSymbols())
}
