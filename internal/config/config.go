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
	TogetherAPIKey   string
	TogetherAPIURL   string
	LLMProvider      string
	LLMModel         string
	GeminiAPIKey     string
	DatabaseURL      string
	HTTPPort         string
	LogLevel         string
	JWTSecret        string
	JWTTTL           time.Duration
	Env              string
	BypassAuth       bool
	UploadDir        string
	MaxUploadBytes   int64
	ChatTimeout      time.Duration
	IndexPath        string
	DBHealthInterval time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		TogetherAPIKey:   getEnv("TOGETHER_API_KEY", ""),
		TogetherAPIURL:   getEnv("TOGETHER_API_URL", "https://api.together.xyz/v1"),
		LLMProvider:      strings.ToLower(getEnv("LLM_PROVIDER", "together")),
		LLMModel:         getEnv("LLM_MODEL", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:      getEnv("DATABASE_URL", "law_backend.db"),
		HTTPPort:         getEnv("HTTP_PORT", "5001"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTTTL:           getEnvAsDuration("JWT_TTL", 30*24*time.Hour),
		Env:              getEnv("APP_ENV", "development"),
		BypassAuth:       getEnvAsBool("BYPASS_AUTH", false),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		ChatTimeout:      getEnvAsDuration("CHAT_TIMEOUT", 30*time.Second),
		IndexPath:        getEnv("INDEX_PATH", ""),
		DBHealthInterval: getEnvAsDuration("DB_HEALTH_INTERVAL", 10*time.Second),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	switch AppConfig.LLMProvider {
	case "gemini":
		if AppConfig.GeminiAPIKey == "" {
			log.Println("Warning: GEMINI_API_KEY is not set, completions will return fallback responses")
		}
	default:
		if AppConfig.TogetherAPIKey == "" {
			log.Println("Warning: TOGETHER_API_KEY is not set, completions will return fallback responses")
		}
	}
}

// IsDevelopment reports whether the service runs outside production.
func (c Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Debug reports whether verbose logging was requested.
func (c Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "DEBUG")
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
