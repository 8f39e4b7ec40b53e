package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by LEDGER_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("LEDGER_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	return intOr("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	return stringOr("MIGRATIONS_PATH", "migrations")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	return stringOr("LOG_LEVEL", "info")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	return positiveFloatOr("RATE_LIMIT_RPS", 100)
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return intOr("RATE_LIMIT_BURST", 20)
}

// GatewayToken is the shared bearer token the upstream gateway presents.
// Empty disables the check.
func GatewayToken() string {
	return os.Getenv("GATEWAY_TOKEN")
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock
func EmbeddingProvider() string {
	return stringOr("EMBEDDING_PROVIDER", "openai")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func OpenAIBaseURL() string {
	return os.Getenv("OPENAI_BASE_URL")
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	if EmbeddingProvider() == "mock" {
		return ""
	}
	return OpenAIAPIKey()
}

func EmbeddingModel() string {
	return os.Getenv("EMBEDDING_MODEL")
}

func EmbeddingTimeout() time.Duration {
	return durationOr("EMBEDDING_TIMEOUT", 10*time.Second)
}

func EmbeddingCacheTTL() time.Duration {
	return durationOr("EMBEDDING_CACHE_TTL", time.Hour)
}

// ReputationProvider returns http or static.
func ReputationProvider() string {
	return stringOr("REPUTATION_PROVIDER", "static")
}

func ReputationURL() string {
	return os.Getenv("REPUTATION_URL")
}

func ReputationDefault() float64 {
	return floatOr("REPUTATION_DEFAULT", 50)
}

// PostAuthorProvider returns http or static.
func PostAuthorProvider() string {
	return stringOr("POST_AUTHOR_PROVIDER", "static")
}

func PostsURL() string {
	return os.Getenv("POSTS_URL")
}

// SimilarityBackend returns pgvector or memory.
func SimilarityBackend() string {
	return stringOr("SIMILARITY_BACKEND", "pgvector")
}

func PropagationThreshold() float64 {
	return floatOr("PROPAGATION_THRESHOLD", 0.85)
}

func PropagationLimit() int {
	return intOr("PROPAGATION_LIMIT", 5)
}

func PropagationDampening() float64 {
	return floatOr("PROPAGATION_DAMPENING", 0.3)
}

func SupportDelta() float64 {
	return floatOr("SUPPORT_DELTA", 0.05)
}

func RefuteDelta() float64 {
	return floatOr("REFUTE_DELTA", 0.05)
}

func CiteDelta() float64 {
	return floatOr("CITE_DELTA", 0.05)
}

func ChallengeDelta() float64 {
	return floatOr("CHALLENGE_DELTA", 0.1)
}

func ClusterThreshold() float64 {
	return floatOr("CLUSTER_THRESHOLD", 0.92)
}

func ClusterSignificantChange() float64 {
	return floatOr("CLUSTER_SIGNIFICANT_CHANGE", 0.1)
}

func NoteDisplayThreshold() float64 {
	return floatOr("NOTE_DISPLAY_THRESHOLD", 0.7)
}

func NoteMinVotes() int {
	return intOr("NOTE_MIN_VOTES", 5)
}

func stringOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatOr(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func positiveFloatOr(key string, def float64) float64 {
	v := floatOr(key, def)
	if v == 0 {
		return def
	}
	return v
}

func durationOr(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
