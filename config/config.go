package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	LLM       LLMConfig
	FDA       FDAConfig
	Store     StoreConfig
	Telemetry TelemetryConfig
	Batch     BatchConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins []string
	JWTSecret          string
}

// LLMConfig is passed by value down the request chain; see ForRequest.
type LLMConfig struct {
	APIKey               string
	BaseURL              string
	Model                string
	TranslatorTemp       float32
	AnswerTemp           float32
	MaxContextTokens     int
	ContextFraction      float64
	AnswerTokensFraction float64
}

type FDAConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	DefaultLimit int
}

type StoreConfig struct {
	Backend        string // "redis", "dynamodb" or "postgres"
	RedisURL       string
	DynamoEndpoint string
	DynamoRegion   string
	ChatsTable     string
	UserChatsTable string
	PostgresDSN    string
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string
}

type BatchConfig struct {
	Interval time.Duration
	// MetricsAddr is where the batch process serves /metrics. Empty disables it.
	MetricsAddr string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", ""),
			CorsAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			APIKey:               getEnv("OPENAI_API_KEY", ""),
			BaseURL:              getEnv("OPENAI_BASE_URL", ""),
			Model:                getEnv("OPENAI_MODEL", "gpt-3.5-turbo-16k"),
			TranslatorTemp:       float32(getEnvAsFloat("TRANSLATOR_TEMPERATURE", 0)),
			AnswerTemp:           float32(getEnvAsFloat("ANSWER_TEMPERATURE", 0.7)),
			MaxContextTokens:     getEnvAsInt("MAX_CONTEXT_TOKENS", 16000),
			ContextFraction:      getEnvAsFloat("CONTEXT_FRACTION", 0.2),
			AnswerTokensFraction: getEnvAsFloat("ANSWER_TOKENS_FRACTION", 0.4),
		},
		FDA: FDAConfig{
			BaseURL:      getEnv("FDA_BASE_URL", "https://api.fda.gov/drug/label.json"),
			APIKey:       getEnv("FDA_API_KEY", ""),
			Timeout:      getEnvAsDuration("FDA_TIMEOUT", 30*time.Second),
			DefaultLimit: getEnvAsInt("FDA_DEFAULT_LIMIT", 20),
		},
		Store: StoreConfig{
			Backend:        strings.ToLower(getEnv("CHAT_STORE", "redis")),
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
			DynamoEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			DynamoRegion:   getEnv("AWS_REGION", "us-east-1"),
			ChatsTable:     getEnv("DYNAMODB_CHATS_TABLE", "Chats"),
			UserChatsTable: getEnv("DYNAMODB_USER_CHATS_TABLE", "UserChats"),
			PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "fda-gpt"),
		},
		Batch: BatchConfig{
			Interval:    getEnvAsDuration("BATCH_INTERVAL", 10*time.Minute),
			MetricsAddr: getEnv("BATCH_METRICS_ADDR", ":9091"),
		},
	}
}

// ForRequest returns a copy of c with the API key replaced by the preview
// token, when one is supplied. c itself is never modified.
func (c LLMConfig) ForRequest(previewToken string) LLMConfig {
	if strings.TrimSpace(previewToken) != "" {
		c.APIKey = previewToken
	}
	return c
}

// ContextBudget is the number of estimated tokens fetched records may use.
func (c LLMConfig) ContextBudget() int {
	return int(float64(c.MaxContextTokens) * c.ContextFraction)
}

func (c LLMConfig) AnswerMaxTokens() int {
	return int(float64(c.MaxContextTokens) * c.AnswerTokensFraction)
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
