// Package config tests.
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnvs(t *testing.T) {
	t.Helper()
	envs := map[string]string{
		"USERNAME":        "botaccount",
		"PASSWORD":        "hunter2",
		"TARGET_USERNAME": "friend",
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvs(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "botaccount", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "friend", cfg.TargetUsername)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvs(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Thanks for your message!", cfg.ResponseMessage)
	assert.Equal(t, 10, cfg.CheckInterval)
	assert.Equal(t, "session.json", cfg.SessionFile)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestValidate_Missing(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USERNAME")
	assert.Contains(t, err.Error(), "PASSWORD")
	assert.Contains(t, err.Error(), "TARGET_USERNAME")

	cfg.Username = "botaccount"
	err = cfg.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "USERNAME,")
	assert.Contains(t, err.Error(), "PASSWORD")
}

func TestInterval(t *testing.T) {
	cfg := &Config{CheckInterval: 30}
	assert.Equal(t, 30*time.Second, cfg.Interval())

	// Zero and negative values fall back to the default.
	cfg.CheckInterval = 0
	assert.Equal(t, 10*time.Second, cfg.Interval())
	cfg.CheckInterval = -5
	assert.Equal(t, 10*time.Second, cfg.Interval())
}

func TestInterval_CustomEnv(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("CHECK_INTERVAL", "3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Interval())
}

func TestNotifyEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.NotifyEnabled())

	cfg.NotifySlackToken = "xoxb-test"
	assert.False(t, cfg.NotifyEnabled())

	cfg.NotifySlackChannel = "#dm-responder-alerts"
	assert.True(t, cfg.NotifyEnabled())
}
