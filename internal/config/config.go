package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string
	Version     string
	LogLevel    string

	OpenAIKey                      string
	OpenAITimeout                  int // OpenAI API timeout in seconds
	AzureOpenAIKey                 string
	AzureOpenAIEndpoint            string
	AzureOpenAIGPTDeployment       string
	AzureOpenAIEmbeddingDeployment string

	QdrantHost       string // Optional Qdrant mirror for semantic search
	QdrantPort       int
	QdrantCollection string

	WorkerCount      int    // Number of polling workers
	ClaimBatchSize   int    // Jobs claimed per poll
	PollIntervalSecs int    // Worker poll interval in seconds
	MaxAttempts      int    // Retries before a job goes dead
	JobBudgetMinutes int    // Per-job wall clock budget
	StaleAfterMins   int    // Processing jobs older than this are reclaimable
	SyncSchedule     string // Cron spec for periodic provider sync

	EmbedBatchSize   int     // Chunks per embedding API call
	EmbedConcurrency int     // Concurrent embedding calls
	ChunkSize        int     // Target chunk size in characters
	ChunkOverlap     int     // Overlap between adjacent chunks
	ResolveThreshold float64 // Minimum fuzzy-match confidence to auto-link

	InsightsPerMinute int // Insight generation quota (per minute)
	InsightsPerDay    int // Insight generation quota (per day)

	SendGridAPIKey string // SendGrid API key for operator alert emails
	OperatorEmail  string // Operator email for pipeline alerts
	SyncProviders  string // Comma-separated providers enabled for scheduled sync
	SyncUserIDs    string // Comma-separated user IDs covered by scheduled sync
	SyncImage      string // Container image for Kubernetes sync jobs

	ProviderGatewayURL   string // Base URL of the provider gateway
	ProviderGatewayToken string // Bearer token for the provider gateway
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		OpenAIKey:                      os.Getenv("OPENAI_API_KEY"),
		OpenAITimeout:                  getEnvInt("OPENAI_TIMEOUT", 60),
		AzureOpenAIKey:                 os.Getenv("AZURE_OPENAI_KEY"),
		AzureOpenAIEndpoint:            os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIGPTDeployment:       getEnv("AZURE_OPENAI_GPT_DEPLOYMENT", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "text-embedding-3-small"),

		QdrantHost:       os.Getenv("QDRANT_HOST"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "cadence_chunks"),

		WorkerCount:      getEnvInt("WORKER_COUNT", 1),
		ClaimBatchSize:   getEnvInt("CLAIM_BATCH_SIZE", 10),
		PollIntervalSecs: getEnvInt("POLL_INTERVAL_SECONDS", 5),
		MaxAttempts:      getEnvInt("JOB_MAX_ATTEMPTS", 5),
		JobBudgetMinutes: getEnvInt("JOB_BUDGET_MINUTES", 5),
		StaleAfterMins:   getEnvInt("JOB_STALE_AFTER_MINUTES", 15),
		SyncSchedule:     getEnv("SYNC_SCHEDULE", "@every 1h"),

		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 50),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 2),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 100),
		ResolveThreshold: getEnvFloat("RESOLVE_THRESHOLD", 0.85),

		InsightsPerMinute: getEnvInt("INSIGHTS_PER_MINUTE", 10),
		InsightsPerDay:    getEnvInt("INSIGHTS_PER_DAY", 500),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		OperatorEmail:  getEnv("OPERATOR_EMAIL", "ops@cadence.local"),
		SyncProviders:  getEnv("SYNC_PROVIDERS", "mail,calendar"),
		SyncUserIDs:    os.Getenv("SYNC_USER_IDS"),
		SyncImage:      getEnv("SYNC_JOB_IMAGE", "cadence:latest"),

		ProviderGatewayURL:   os.Getenv("PROVIDER_GATEWAY_URL"),
		ProviderGatewayToken: os.Getenv("PROVIDER_GATEWAY_TOKEN"),
	}

	return config
}

// UseAzureOpenAI reports whether Azure OpenAI is configured as the primary provider
func (c *Config) UseAzureOpenAI() bool {
	return c.AzureOpenAIKey != "" && c.AzureOpenAIEndpoint != ""
}

// HasOpenAIFallback reports whether the OpenAI platform key is configured
func (c *Config) HasOpenAIFallback() bool {
	return c.OpenAIKey != ""
}

// UseQdrant reports whether the Qdrant mirror is configured
func (c *Config) UseQdrant() bool {
	return c.QdrantHost != ""
}

// EnabledProviders returns the providers enabled for scheduled sync
func (c *Config) EnabledProviders() []string {
	var providers []string
	for _, p := range strings.Split(c.SyncProviders, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, p)
		}
	}
	return providers
}

// SyncUsers returns the user IDs covered by scheduled sync
func (c *Config) SyncUsers() []string {
	var users []string
	for _, u := range strings.Split(c.SyncUserIDs, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			users = append(users, u)
		}
	}
	return users
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float with a default fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "cadence").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
