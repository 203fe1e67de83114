// Package config loads runtime configuration from the environment.
// Every credential is optional: a missing key disables exactly the feature
// it gates, never the whole system.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pipeline constants.
const (
	// MaxArticlesPerSource bounds each per-source recency index.
	MaxArticlesPerSource = 100

	// MaxArticlesGlobal bounds the global recency index.
	MaxArticlesGlobal = 200

	// IndexTTL is how long an untouched index key survives.
	IndexTTL = 7 * 24 * time.Hour

	// DefaultArticleLimit is the article count for API list requests.
	DefaultArticleLimit = 20

	// DefaultCrawlLimit is the per-source article count for a crawl run.
	DefaultCrawlLimit = 5

	// MaxTransformContentLen truncates article content before it is sent
	// to the text-generation API.
	MaxTransformContentLen = 2000

	// BatchSize bounds parallel per-article enrichment.
	BatchSize = 5

	// BatchDelay is the pause between enrichment batches.
	BatchDelay = 1 * time.Second

	// PushTTL is the web-push message TTL in seconds.
	PushTTL = 60

	// EnrichTimeout aborts a single slow content fetch so one source
	// cannot stall a whole scheduled run.
	EnrichTimeout = 15 * time.Second

	// ThumbnailCacheControl is set on generated thumbnail objects.
	ThumbnailCacheControl = "public, max-age=31536000"
)

// Config holds all environment-provided settings.
type Config struct {
	Port          string
	PublicBaseURL string
	AdminAPIKey   string

	// Text generation
	CohereAPIKey   string
	TransformModel string
	PromptStyle    string

	// Image generation
	GeminiAPIKey   string
	EnableAIImages bool
	UnsplashAPIKey string

	// Provider credentials
	SerperAPIKey string

	// Web push (VAPID)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Blob store
	S3Bucket       string
	S3Region       string
	S3Prefix       string
	S3UsePathStyle bool

	// Key-value store
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Optional event stream
	KafkaBrokers []string
	KafkaTopic   string

	// Scheduler
	CrawlCron string
}

// Load reads configuration from the environment, loading .env first when
// present (non-fatal if missing).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		PublicBaseURL:   strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		AdminAPIKey:     os.Getenv("ADMIN_API_KEY"),
		CohereAPIKey:    os.Getenv("COHERE_API_KEY"),
		TransformModel:  getEnvOrDefault("TRANSFORM_MODEL", "command-r-08-2024"),
		PromptStyle:     os.Getenv("PROMPT_STYLE"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		EnableAIImages:  boolEnv("ENABLE_AI_IMAGES"),
		UnsplashAPIKey:  os.Getenv("UNSPLASH_API_KEY"),
		SerperAPIKey:    os.Getenv("SERPER_API_KEY"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnvOrDefault("VAPID_SUBJECT", "mailto:admin@localhost"),
		S3Bucket:        strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:        strings.TrimSpace(os.Getenv("S3_REGION")),
		S3UsePathStyle:  boolEnv("S3_USE_PATH_STYLE"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPass:       os.Getenv("REDIS_PASS"),
		KafkaTopic:      getEnvOrDefault("KAFKA_TOPIC", "glasswire.articles"),
		CrawlCron:       getEnvOrDefault("CRAWL_CRON", "0 */4 * * *"),
	}

	if prefix := strings.TrimSpace(os.Getenv("S3_PREFIX")); prefix != "" {
		cfg.S3Prefix = strings.Trim(prefix, "/") + "/"
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.RedisDB = n
		}
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}
