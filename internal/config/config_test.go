package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Results.DedupeWindow)
	assert.Equal(t, "results.enrichment", cfg.Kafka.Topic)
	assert.Equal(t, 0, cfg.Scoring.MaxEditDistance)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GRADER_BACKEND", "mock")
	t.Setenv("GRADER_DELAY", "250ms")
	t.Setenv("DEDUPE_WINDOW", "1m")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mock", cfg.Grader.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Grader.Delay)
	assert.Equal(t, time.Minute, cfg.Results.DedupeWindow)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}
