package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProductionRequiresStrongSecret(t *testing.T) {
	cfg := &Config{Environment: "production"}
	assert.Error(t, cfg.Validate())

	cfg.TokenSigningSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.TokenSigningSecret = "change-this-in-production"
	assert.Error(t, cfg.Validate())

	cfg.TokenSigningSecret = "a-genuinely-long-random-secret-value-123"
	assert.NoError(t, cfg.Validate())
}

func TestValidateDevelopmentDefaultsSecret(t *testing.T) {
	cfg := &Config{Environment: "development"}
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.TokenSigningSecret)
}

func TestValidateRejectsNegativeShipping(t *testing.T) {
	cfg := &Config{Environment: "development", ShippingFee: -1}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Environment: "development", FreeShippingThreshold: -5}
	assert.Error(t, cfg.Validate())
}

func TestEnvironmentPredicates(t *testing.T) {
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
	assert.True(t, (&Config{Environment: "prod"}).IsProduction())
	assert.False(t, (&Config{Environment: "development"}).IsProduction())

	assert.True(t, (&Config{Environment: ""}).IsDevelopment())
	assert.True(t, (&Config{Environment: "dev"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "production"}).IsDevelopment())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PANTRY_TEST_STR", "value")
	assert.Equal(t, "value", getEnv("PANTRY_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", getEnv("PANTRY_TEST_MISSING", "fallback"))

	t.Setenv("PANTRY_TEST_DUR", "30s")
	assert.Equal(t, 30*time.Second, getEnvDuration("PANTRY_TEST_DUR", time.Minute))
	t.Setenv("PANTRY_TEST_DUR", "nonsense")
	assert.Equal(t, time.Minute, getEnvDuration("PANTRY_TEST_DUR", time.Minute))

	t.Setenv("PANTRY_TEST_FLOAT", "7.5")
	assert.Equal(t, 7.5, getEnvFloat("PANTRY_TEST_FLOAT", 1))
	t.Setenv("PANTRY_TEST_FLOAT", "nonsense")
	assert.Equal(t, 1.0, getEnvFloat("PANTRY_TEST_FLOAT", 1))
}
