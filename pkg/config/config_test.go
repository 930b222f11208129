package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("onboarding")
	require.NoError(t, err)

	assert.Equal(t, "onboarding", cfg.Server.ServiceName)
	assert.Equal(t, "mock", cfg.Orchestrator.IntegrationMode)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.CallTimeout)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Orchestrator.InitialBackoff)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.BatchDeadline)
	assert.False(t, cfg.Orchestrator.StrictRuleVersion)
	assert.True(t, cfg.Orchestrator.ProcessOnSubmit)
	assert.Equal(t, time.Minute, cfg.Orchestrator.BreakerInterval)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.BreakerOpenTimeout)
	assert.Equal(t, 5, cfg.Orchestrator.BreakerFailureThreshold)
	assert.Equal(t, 1, cfg.Orchestrator.BreakerSuccessThreshold)
	assert.False(t, cfg.Database.Enabled)
	assert.Empty(t, cfg.Secrets.Provider)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INTEGRATION_MODE", "http")
	t.Setenv("INTEGRATION_BASE_URL", "http://verifier.internal")
	t.Setenv("INTEGRATION_TIMEOUT", "5s")
	t.Setenv("INTEGRATION_MAX_RETRIES", "1")
	t.Setenv("STRICT_RULE_VERSION", "true")
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("INTEGRATION_BREAKER_OPEN_TIMEOUT", "2m")
	t.Setenv("INTEGRATION_BREAKER_FAILURES", "3")

	cfg, err := Load("onboarding")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Orchestrator.IntegrationMode)
	assert.Equal(t, 5*time.Second, cfg.Orchestrator.CallTimeout)
	assert.Equal(t, 1, cfg.Orchestrator.MaxRetries)
	assert.True(t, cfg.Orchestrator.StrictRuleVersion)
	assert.Equal(t, 1, cfg.Orchestrator.WorkerCount)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.BreakerOpenTimeout)
	assert.Equal(t, 3, cfg.Orchestrator.BreakerFailureThreshold)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"http without base url", map[string]string{"INTEGRATION_MODE": "http"}},
		{"unknown mode", map[string]string{"INTEGRATION_MODE": "grpc"}},
		{"negative retries", map[string]string{"INTEGRATION_MAX_RETRIES": "-1"}},
		{"unknown secrets provider", map[string]string{"SECRETS_PROVIDER": "keychain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("onboarding")
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnparseableValuesFallBack(t *testing.T) {
	t.Setenv("INTEGRATION_TIMEOUT", "soon")
	t.Setenv("DB_ENABLED", "maybe")

	cfg, err := Load("onboarding")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.CallTimeout)
	assert.False(t, cfg.Database.Enabled)
}

func TestServerConfig_AllowedOrigins(t *testing.T) {
	s := ServerConfig{CORSOrigins: "https://a.example, ,https://b.example "}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins())
}

func TestDatabaseConfig_ConnectionStrings(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "onboarding", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=onboarding sslmode=disable", db.DSN())
	assert.Equal(t, "pgx5://u:p@db:5432/onboarding?sslmode=disable", db.URL())
}
