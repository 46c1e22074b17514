package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productload/internal/runner"
	"productload/internal/storage"
)

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"Authorization: Bearer x:y", " X-Trace :1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer x:y", "X-Trace": "1"}, h)

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)
	_, err = parseHeaders([]string{": empty key"})
	assert.Error(t, err)
}

func TestConfigFromViper(t *testing.T) {
	v := viper.New()
	v.Set("host", "http://api.local:8080")
	v.Set("users", 25)
	v.Set("spawn-rate", 5.0)
	v.Set("run-time", "2m")
	v.Set("timeout", "3s")
	v.Set("seed", 9)
	v.Set("headers", map[string]string{"x-env": "staging"})
	v.Set("header", []string{"X-Run: 1"})

	cfg, err := configFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, runner.Config{
		Host:      "http://api.local:8080",
		Users:     25,
		SpawnRate: 5,
		RunTime:   2 * time.Minute,
		Timeout:   3 * time.Second,
		Seed:      9,
		Headers:   map[string]string{"x-env": "staging", "X-Run": "1"},
	}, cfg)
}

func TestConfigFromViperInvalid(t *testing.T) {
	v := viper.New()
	v.Set("host", "http://api.local")
	v.Set("users", 0)
	v.Set("spawn-rate", 1.0)

	_, err := configFromViper(v)
	assert.Error(t, err)
}

func TestFlagsBoundToViper(t *testing.T) {
	def := runner.DefaultConfig()
	assert.Equal(t, def.SpawnRate, viper.GetFloat64("spawn-rate"))
	assert.Equal(t, def.Timeout, viper.GetDuration("timeout"))
	assert.Equal(t, "info", viper.GetString("log-level"))

	require.NoError(t, runCmd.Flags().Set("users", "12"))
	t.Cleanup(func() { runCmd.Flags().Set("users", "1") })
	assert.Equal(t, 12, viper.GetInt("users"))
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	require.NoError(t, setupLogging("WARN", "", false))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	require.NoError(t, setupLogging("debug", filepath.Join(t.TempDir(), "run.log"), true))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	assert.Error(t, setupLogging("loud", "", false))
	closeLogging()
}

func TestLogFileIsConsoleFormatAndClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, setupLogging("info", path, false))
	require.NotNil(t, logFile)

	log.Info().Str("run", "abc").Msg("run started")
	closeLogging()
	assert.Nil(t, logFile)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(b)
	assert.Contains(t, line, "run started")
	assert.Contains(t, line, "run=abc")
	assert.NotContains(t, line, "{")
	assert.NotContains(t, line, "\x1b[")

	// a second setup replaces the previous handle
	require.NoError(t, setupLogging("info", path, false))
	first := logFile
	require.NoError(t, setupLogging("info", path, false))
	assert.NotSame(t, first, logFile)
	assert.Error(t, first.Close(), "previous log file should already be closed")
	closeLogging()
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	writeHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No runs saved yet.")

	buf.Reset()
	writeHistory(&buf, []storage.HistoryItem{{
		ID:        "a1b2c3d4e5",
		Timestamp: time.Now(),
		Config:    runner.Config{Host: "http://localhost:8080", Users: 4},
		Summary:   storage.RunSummary{TotalRequests: 10},
	}})
	assert.Contains(t, buf.String(), "a1b2c3d4")
	assert.Contains(t, buf.String(), "http://localhost:8080")
}
