package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "noop", cfg.Observability.Provider)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AGENT_MAX_ITERATIONS", "5")
	t.Setenv("LLM_PROVIDER", "Anthropic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoad_RejectsBadIterationCap(t *testing.T) {
	t.Setenv("AGENT_MAX_ITERATIONS", "zero")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AGENT_MAX_ITERATIONS", "0")
	_, err = Load()
	assert.Error(t, err)
}
