package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Assembly  AssemblyAIConfig
	Groq      GroqConfig
	Diarizer  DiarizerConfig
	Sentiment SentimentConfig
	Analysis  AnalysisConfig
	Pipeline  PipelineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int

	// AutoMigrate applies the SQL migrations on startup. Development
	// convenience; production schemas go through sql-migrate in CI/CD.
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds service token configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// StorageConfig holds recording storage configuration
type StorageConfig struct {
	Type            string // "minio" or "s3"
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// AssemblyAIConfig holds transcription provider configuration
type AssemblyAIConfig struct {
	APIKey         string
	WebhookBaseURL string
	WebhookSecret  string
	LanguageCode   string
}

// GroqConfig holds LLM provider configuration
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// DiarizerConfig holds the speaker diarization service configuration
type DiarizerConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SentimentConfig holds the sentiment classification service configuration
type SentimentConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AnalysisConfig holds the background worker configuration
type AnalysisConfig struct {
	WorkerCount       int
	PollInterval      time.Duration
	ZombieTimeout     time.Duration
	WebhookTimeout    time.Duration
	MaxRetries        int
	ConcurrentUploads int
}

// PipelineConfig holds the alignment and aggregation thresholds. Loaded via
// envconfig so operators can tune thresholds without code changes.
type PipelineConfig struct {
	OverlapEpsilon   float64       `envconfig:"PIPELINE_OVERLAP_EPSILON" default:"0.05"`
	GapBridge        float64       `envconfig:"PIPELINE_GAP_BRIDGE" default:"1.0"`
	PauseThreshold   float64       `envconfig:"PIPELINE_PAUSE_THRESHOLD" default:"2.0"`
	MergeWindow      float64       `envconfig:"PIPELINE_MERGE_WINDOW" default:"0.3"`
	MixedShareCutoff float64       `envconfig:"PIPELINE_MIXED_SHARE_CUTOFF" default:"0.2"`
	TopicsCap        int           `envconfig:"PIPELINE_TOPICS_CAP" default:"10"`
	SentimentWorkers int           `envconfig:"PIPELINE_SENTIMENT_WORKERS" default:"4"`
	SummaryTimeout   time.Duration `envconfig:"PIPELINE_SUMMARY_TIMEOUT" default:"60s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "callsight"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", "24h"),
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "minio"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "call-recordings"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
		},
		Assembly: AssemblyAIConfig{
			APIKey:         getEnv("ASSEMBLYAI_API_KEY", ""),
			WebhookBaseURL: getEnv("ASSEMBLYAI_WEBHOOK_URL", ""),
			WebhookSecret:  getEnv("ASSEMBLYAI_WEBHOOK_SECRET", ""),
			LanguageCode:   getEnv("ASSEMBLYAI_LANGUAGE", ""),
		},
		Groq: GroqConfig{
			APIKey:  getEnv("GROQ_API_KEY", ""),
			BaseURL: getEnv("GROQ_API_URL", "https://api.groq.com"),
			Model:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		},
		Diarizer: DiarizerConfig{
			BaseURL: getEnv("DIARIZER_URL", ""),
			APIKey:  getEnv("DIARIZER_API_KEY", ""),
			Timeout: getEnvAsDuration("DIARIZER_TIMEOUT", "300s"),
		},
		Sentiment: SentimentConfig{
			BaseURL: getEnv("SENTIMENT_URL", ""),
			APIKey:  getEnv("SENTIMENT_API_KEY", ""),
			Timeout: getEnvAsDuration("SENTIMENT_TIMEOUT", "15s"),
		},
		Analysis: AnalysisConfig{
			WorkerCount:       getEnvAsInt("ANALYSIS_WORKER_COUNT", 3),
			PollInterval:      getEnvAsDuration("ANALYSIS_POLL_INTERVAL", "30s"),
			ZombieTimeout:     getEnvAsDuration("ANALYSIS_ZOMBIE_TIMEOUT", "10m"),
			WebhookTimeout:    getEnvAsDuration("ANALYSIS_WEBHOOK_TIMEOUT", "10m"),
			MaxRetries:        getEnvAsInt("ANALYSIS_MAX_RETRIES", 3),
			ConcurrentUploads: getEnvAsInt("ANALYSIS_CONCURRENT_UPLOADS", 2),
		},
	}

	if err := envconfig.Process("", &config.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to load pipeline configuration: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Assembly.APIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY is required")
	}
	if c.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if c.Sentiment.BaseURL == "" {
		return fmt.Errorf("SENTIMENT_URL is required")
	}
	if c.Analysis.WorkerCount <= 0 {
		return fmt.Errorf("ANALYSIS_WORKER_COUNT must be positive")
	}
	if c.Analysis.ConcurrentUploads <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENT_UPLOADS must be positive")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
