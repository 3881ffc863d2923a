package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LLMConfig selects and parameterizes the model provider.
type LLMConfig struct {
	Provider string // "openai" or "anthropic"
	Model    string
	APIKey   string
	BaseURL  string // optional OpenAI-compatible endpoint override
}

// AWSConfig covers the Bedrock knowledge base and Cognito.
type AWSConfig struct {
	Region          string
	KnowledgeBaseID string
	UserPoolID      string
	ClientID        string
}

// ObservabilityConfig selects the tracing backend.
type ObservabilityConfig struct {
	Provider string // "langfuse", "otel", "local", "noop"

	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string

	OTLPEndpoint string

	LocalDBPath string
}

// MarketDataConfig points at the quote provider.
type MarketDataConfig struct {
	BaseURL string
}

// Config is the full process configuration, loaded once at startup.
type Config struct {
	HTTPAddr      string
	CORSOrigins   []string
	MaxIterations int
	AuthDisabled  bool

	LLM           LLMConfig
	AWS           AWSConfig
	Observability ObservabilityConfig
	MarketData    MarketDataConfig
}

// Load reads configuration from the environment, merging a .env file when
// present. Missing optional values fall back to defaults; provider-specific
// validation happens where the provider is built.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		CORSOrigins:   splitAndTrim(getEnv("CORS_ORIGINS", "*")),
		MaxIterations: 10,
		AuthDisabled:  getEnv("AUTH_DISABLED", "false") == "true",
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:    os.Getenv("LLM_MODEL"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			KnowledgeBaseID: os.Getenv("BEDROCK_KNOWLEDGE_BASE_ID"),
			UserPoolID:      os.Getenv("COGNITO_USER_POOL_ID"),
			ClientID:        os.Getenv("COGNITO_CLIENT_ID"),
		},
		Observability: ObservabilityConfig{
			Provider:          strings.ToLower(getEnv("OBSERVABILITY_PROVIDER", "noop")),
			LangfusePublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
			LangfuseSecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
			LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
			OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			LocalDBPath:       getEnv("TRACE_DB_PATH", "marketmind-traces.db"),
		},
		MarketData: MarketDataConfig{
			BaseURL: getEnv("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
		},
	}

	if raw := os.Getenv("AGENT_MAX_ITERATIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("AGENT_MAX_ITERATIONS must be a positive integer, got %q", raw)
		}
		cfg.MaxIterations = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
