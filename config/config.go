package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultWorkerCount = 4
	defaultJobTTL      = 24 * time.Hour
)

type Config struct {
	HTTPAddress        string
	CORSAllowedOrigins []string

	Database DatabaseConfig
	AI       AIConfig
	Policy   PolicyConfig
	Logging  LoggingConfig
	Redis    RedisConfig

	WorkerCount int
	JobTTL      time.Duration
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AIConfig struct {
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	TranscriptionModel string
	EmbeddingProvider  string
	EmbeddingModel     string
	AnswerProvider     string
	AnswerModel        string
	OllamaHost         string
	Timeout            time.Duration
}

// PolicyConfig holds the retrieval and input limits applied by the room handlers
type PolicyConfig struct {
	SimilarityThreshold float64
	SimilarityLimit     int
	MaxAudioBytes       int64
	MaxQuestionLength   int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":3333")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rooms")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("TRANSCRIPTION_MODEL", "whisper-1")
	v.SetDefault("EMBEDDING_PROVIDER", ProviderOpenAI)
	v.SetDefault("EMBEDDING_MODEL", "")
	v.SetDefault("ANSWER_PROVIDER", ProviderOpenAI)
	v.SetDefault("ANSWER_MODEL", "")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("AI_TIMEOUT", "60s")

	v.SetDefault("SIMILARITY_THRESHOLD", 0.7)
	v.SetDefault("SIMILARITY_LIMIT", 3)
	v.SetDefault("MAX_AUDIO_BYTES", 25<<20)
	v.SetDefault("MAX_QUESTION_LENGTH", 2000)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("WORKER_COUNT", defaultWorkerCount)
	v.SetDefault("JOB_TTL", "24h")
}

// Load reads the configuration from envFile (if it exists) and the environment.
// Environment variables take precedence over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")

		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading env file, using environment only", slog.String("file", envFile), slog.Any("error", err))
		}
	}

	v.AutomaticEnv()

	cfg := FromViper(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		AI: AIConfig{
			OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
			OpenAIBaseURL:      v.GetString("OPENAI_BASE_URL"),
			TranscriptionModel: v.GetString("TRANSCRIPTION_MODEL"),
			EmbeddingProvider:  strings.ToLower(strings.TrimSpace(v.GetString("EMBEDDING_PROVIDER"))),
			EmbeddingModel:     v.GetString("EMBEDDING_MODEL"),
			AnswerProvider:     strings.ToLower(strings.TrimSpace(v.GetString("ANSWER_PROVIDER"))),
			AnswerModel:        v.GetString("ANSWER_MODEL"),
			OllamaHost:         strings.TrimRight(v.GetString("OLLAMA_HOST"), "/"),
			Timeout:            v.GetDuration("AI_TIMEOUT"),
		},
		Policy: PolicyConfig{
			SimilarityThreshold: v.GetFloat64("SIMILARITY_THRESHOLD"),
			SimilarityLimit:     v.GetInt("SIMILARITY_LIMIT"),
			MaxAudioBytes:       v.GetInt64("MAX_AUDIO_BYTES"),
			MaxQuestionLength:   v.GetInt("MAX_QUESTION_LENGTH"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		WorkerCount: v.GetInt("WORKER_COUNT"),
		JobTTL:      v.GetDuration("JOB_TTL"),
	}

	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = defaultEmbeddingModel(cfg.AI.EmbeddingProvider)
	}
	if cfg.AI.AnswerModel == "" {
		cfg.AI.AnswerModel = defaultAnswerModel(cfg.AI.AnswerProvider)
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = defaultJobTTL
	}

	return cfg
}

func defaultEmbeddingModel(provider string) string {
	if provider == ProviderOllama {
		return "nomic-embed-text"
	}
	return "text-embedding-3-small"
}

func defaultAnswerModel(provider string) string {
	if provider == ProviderOllama {
		return "gemma3"
	}
	return "gpt-4o-mini"
}

// DSN returns the postgres connection string
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

func (c Config) Validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("HTTP_ADDRESS cannot be empty")
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" || c.Database.Port == "" {
			return fmt.Errorf("missing database settings: set DATABASE_URL or DB_HOST, DB_PORT, DB_USER and DB_NAME")
		}
	}

	if !validProvider(c.AI.EmbeddingProvider) {
		return fmt.Errorf("unsupported EMBEDDING_PROVIDER %q", c.AI.EmbeddingProvider)
	}

	if !validProvider(c.AI.AnswerProvider) {
		return fmt.Errorf("unsupported ANSWER_PROVIDER %q", c.AI.AnswerProvider)
	}

	if c.AI.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for transcription")
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}

	if c.Policy.SimilarityThreshold < 0 || c.Policy.SimilarityThreshold >= 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in [0, 1), got %v", c.Policy.SimilarityThreshold)
	}

	if c.Policy.SimilarityLimit < 1 {
		return fmt.Errorf("SIMILARITY_LIMIT must be at least 1, got %d", c.Policy.SimilarityLimit)
	}

	if c.Policy.MaxAudioBytes < 1 {
		return fmt.Errorf("MAX_AUDIO_BYTES must be positive")
	}

	if c.Policy.MaxQuestionLength < 1 {
		return fmt.Errorf("MAX_QUESTION_LENGTH must be positive")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1, got %d", c.WorkerCount)
	}

	if c.JobTTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive")
	}

	return nil
}

func validProvider(name string) bool {
	return name == ProviderOpenAI || name == ProviderOllama
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
