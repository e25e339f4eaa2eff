package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meeting-agent/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fixture", cfg.CRM.Driver)
	assert.True(t, cfg.CRM.Breaker.Enabled)
	assert.Equal(t, 3, cfg.CRM.Breaker.MaxFailures)
	assert.Equal(t, 30, cfg.CRM.Breaker.OpenTimeoutSecs)

	assert.True(t, cfg.Calendar.Enabled)
	assert.Equal(t, 7, cfg.Calendar.WindowDays)

	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 60, cfg.Anthropic.TimeoutSecs)

	assert.Equal(t, 85.0, cfg.Gate.Threshold)
	assert.Equal(t, 5.0, cfg.Gate.Margin)
	assert.Equal(t, 40.0, cfg.Gate.Floor)
	assert.Equal(t, 3, cfg.Gate.TopK)

	assert.Equal(t, 10.0, cfg.Resolver.CompanyBonus)
	assert.Equal(t, 80.0, cfg.Resolver.CompanyMatchMin)

	assert.Equal(t, 4, cfg.Batch.MaxConcurrentNotes)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEETING_AGENT_CRM_DRIVER", "sqlite")
	t.Setenv("MEETING_AGENT_GATE_THRESHOLD", "90")
	t.Setenv("MEETING_AGENT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.CRM.Driver)
	assert.Equal(t, 90.0, cfg.Gate.Threshold)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGateConfigPolicy_Defaults(t *testing.T) {
	p := GateConfig{}.Policy()

	assert.Equal(t, 85.0, p.Default)
	assert.Equal(t, 5.0, p.Margin)
	assert.Equal(t, 40.0, p.Floor)
	assert.Equal(t, 3, p.TopK)
	assert.Equal(t, 85.0, p.Threshold(model.EntityContact))
}

func TestGateConfigPolicy_PerTypeThresholds(t *testing.T) {
	g := GateConfig{
		Threshold:        80,
		ContactThreshold: 92,
		Margin:           8,
		Floor:            50,
		TopK:             5,
	}
	p := g.Policy()

	assert.Equal(t, 92.0, p.Threshold(model.EntityContact))
	assert.Equal(t, 80.0, p.Threshold(model.EntityCompany))
	assert.Equal(t, 80.0, p.Threshold(model.EntityOpportunity))
	assert.Equal(t, 8.0, p.Margin)
	assert.Equal(t, 50.0, p.Floor)
	assert.Equal(t, 5, p.TopK)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
