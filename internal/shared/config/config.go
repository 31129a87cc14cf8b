package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"verisight-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	ContentStore   string
	LocalStoreDir  string
	AWSRegion      string
	S3Bucket       string
	S3Prefix       string
	SSEKMSKeyID    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LLMProvider   string
	LLMModel      string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	LLMTimeout    time.Duration
	LLMMaxRetries int

	MaxUploadBytes        int64
	StrictForbidden       bool
	RateLimitUploadPerMin int

	JWTSecret    string
	SessionTTL   time.Duration
	AdminUserIDs []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables and an optional CONFIG_FILE.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := newViper()
	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			telemetry.Error("config.read_failed", map[string]any{"file": file, "error": err.Error()})
		}
	}
	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("CONTENT_STORE", "inline")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("MINIO_USE_SSL", true)
	v.SetDefault("LLM_PROVIDER", "gemini")
	v.SetDefault("LLM_TIMEOUT", "120s")
	v.SetDefault("LLM_MAX_RETRIES", 0)
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)
	v.SetDefault("STRICT_FORBIDDEN", false)
	v.SetDefault("RATE_LIMIT_UPLOAD_PER_MIN", 10)
	v.SetDefault("SESSION_TTL", "720h")
	return v
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Error("config.missing", map[string]any{"key": "DATABASE_URL", "env": env})
	}

	provider := normalizeProvider(v.GetString("LLM_PROVIDER"))
	model := strings.TrimSpace(v.GetString("LLM_MODEL"))
	if model == "" {
		model = defaultModel(provider)
	}

	retries := v.GetInt("LLM_MAX_RETRIES")
	if retries < 0 {
		retries = 0
	}
	if retries > 1 {
		retries = 1
	}

	return Config{
		Port:                  v.GetString("PORT"),
		Env:                   env,
		CORSAllowOrigin:       splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:           dbURL,
		ContentStore:          normalizeStoreType(v.GetString("CONTENT_STORE")),
		LocalStoreDir:         v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:             v.GetString("AWS_REGION"),
		S3Bucket:              v.GetString("S3_BUCKET"),
		S3Prefix:              v.GetString("S3_PREFIX"),
		SSEKMSKeyID:           v.GetString("SSE_KMS_KEY_ID"),
		MinioEndpoint:         v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:        v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:        v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:           v.GetString("MINIO_BUCKET"),
		MinioUseSSL:           v.GetBool("MINIO_USE_SSL"),
		LLMProvider:           provider,
		LLMModel:              model,
		GeminiAPIKey:          v.GetString("GEMINI_API_KEY"),
		OpenAIAPIKey:          v.GetString("OPENAI_API_KEY"),
		LLMTimeout:            positiveDuration(v.GetDuration("LLM_TIMEOUT"), 120*time.Second),
		LLMMaxRetries:         retries,
		MaxUploadBytes:        v.GetInt64("MAX_UPLOAD_BYTES"),
		StrictForbidden:       v.GetBool("STRICT_FORBIDDEN"),
		RateLimitUploadPerMin: v.GetInt("RATE_LIMIT_UPLOAD_PER_MIN"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		SessionTTL:            positiveDuration(v.GetDuration("SESSION_TTL"), 720*time.Hour),
		AdminUserIDs:          splitAndTrim(v.GetString("ADMIN_USER_IDS")),
		GoogleClientID:        v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:     v.GetString("GOOGLE_REDIRECT_URL"),
		UIRedirectURL:         v.GetString("UI_REDIRECT_URL"),
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local":
		return "local"
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "inline"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "placeholder":
		return "none"
	default:
		return "gemini"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return ""
	}
}

func positiveDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
