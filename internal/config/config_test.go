package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, 10, cfg.ClaimBatchSize)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 5, cfg.JobBudgetMinutes)
	assert.Equal(t, 15, cfg.StaleAfterMins)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 0.85, cfg.ResolveThreshold)
	assert.Equal(t, "@every 1h", cfg.SyncSchedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("CHUNK_SIZE", "400")
	t.Setenv("RESOLVE_THRESHOLD", "0.9")
	t.Setenv("JOB_MAX_ATTEMPTS", "3")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 0.9, cfg.ResolveThreshold)
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("RESOLVE_THRESHOLD", "high")

	cfg := Load()

	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, 0.85, cfg.ResolveThreshold)
}

func TestUseAzureOpenAI(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		endpoint string
		expected bool
	}{
		{"both set", "key", "https://example.openai.azure.com", true},
		{"key only", "key", "", false},
		{"endpoint only", "", "https://example.openai.azure.com", false},
		{"neither", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AzureOpenAIKey: tt.key, AzureOpenAIEndpoint: tt.endpoint}
			assert.Equal(t, tt.expected, cfg.UseAzureOpenAI())
		})
	}
}

func TestEnabledProviders(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"default pair", "mail,calendar", []string{"mail", "calendar"}},
		{"whitespace", " mail , calendar ", []string{"mail", "calendar"}},
		{"trailing comma", "mail,", []string{"mail"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SyncProviders: tt.raw}
			assert.Equal(t, tt.expected, cfg.EnabledProviders())
		})
	}
}

func TestSyncUsers(t *testing.T) {
	cfg := &Config{SyncUserIDs: "u1, u2,,u3"}
	assert.Equal(t, []string{"u1", "u2", "u3"}, cfg.SyncUsers())

	cfg = &Config{}
	assert.Nil(t, cfg.SyncUsers())
}
