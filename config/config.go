package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the textbook service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RAG       RAGConfig       `mapstructure:"rag"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen         string        `mapstructure:"listen"`
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ProvidersConfig contains external AI provider settings
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig contains OpenAI API settings
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

func (o OpenAIConfig) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return fmt.Errorf("providers.openai.api_key required")
	}
	return nil
}

// DatabasesConfig groups connection settings for backing stores
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("databases.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("databases.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("databases.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("databases.redis.port required")
	}
	return nil
}

// CacheConfig controls the local chapter cache tier
type CacheConfig struct {
	Dir                 string        `mapstructure:"dir"`
	SourceBaseURL       string        `mapstructure:"source_base_url"`
	TTL                 time.Duration `mapstructure:"ttl"`
	PreloadWorkers      int           `mapstructure:"preload_workers"`
	DownloadTimeout     time.Duration `mapstructure:"download_timeout"`
	InvalidateCloudText bool          `mapstructure:"invalidate_cloud_text"`
}

func (c CacheConfig) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("cache.dir required")
	}
	if strings.TrimSpace(c.SourceBaseURL) == "" {
		return fmt.Errorf("cache.source_base_url required")
	}
	return nil
}

// RAGConfig controls chunking, retrieval and generation behaviour
type RAGConfig struct {
	MinChunkWords        int   `mapstructure:"min_chunk_words"`
	MaxChunkWords        int   `mapstructure:"max_chunk_words"`
	EmbeddingDimensions  int   `mapstructure:"embedding_dimensions"`
	EmbeddingBatchSize   int   `mapstructure:"embedding_batch_size"`
	TopKMax              int   `mapstructure:"top_k_max"`
	DefaultTopK          int   `mapstructure:"default_top_k"`
	SummaryBatchSize     int   `mapstructure:"summary_batch_size"`
	GeneralFallback      bool  `mapstructure:"general_fallback"`
	IndexRetries         int   `mapstructure:"index_retries"`
	SupportedClassLevels []int `mapstructure:"supported_class_levels"`
}

// Normalize applies defaults for unset RAG values.
func (r RAGConfig) Normalize() RAGConfig {
	if r.MinChunkWords <= 0 {
		r.MinChunkWords = 300
	}
	if r.MaxChunkWords <= 0 {
		r.MaxChunkWords = 800
	}
	if r.EmbeddingDimensions <= 0 {
		r.EmbeddingDimensions = 1536
	}
	if r.EmbeddingBatchSize <= 0 {
		r.EmbeddingBatchSize = 100
	}
	if r.TopKMax <= 0 {
		r.TopKMax = 50
	}
	if r.DefaultTopK <= 0 {
		r.DefaultTopK = 5
	}
	if r.SummaryBatchSize <= 0 {
		r.SummaryBatchSize = 20
	}
	if r.IndexRetries <= 0 {
		r.IndexRetries = 3
	}
	if len(r.SupportedClassLevels) == 0 {
		r.SupportedClassLevels = []int{9, 10, 11, 12}
	}
	return r
}

func (r RAGConfig) Validate() error {
	if r.MinChunkWords > r.MaxChunkWords {
		return fmt.Errorf("rag.min_chunk_words must not exceed rag.max_chunk_words")
	}
	return nil
}

// SupportsClassLevel reports whether the given class level is configured.
func (r RAGConfig) SupportsClassLevel(level int) bool {
	for _, l := range r.SupportedClassLevels {
		if l == level {
			return true
		}
	}
	return false
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.listen", ":10010")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("providers.openai.completion_model", "gpt-4")
	viper.SetDefault("providers.openai.embedding_model", "text-embedding-3-large")
	viper.SetDefault("providers.openai.temperature", 0.7)
	viper.SetDefault("providers.openai.max_tokens", 1500)
	viper.SetDefault("providers.openai.timeout", 30*time.Second)
	viper.SetDefault("providers.openai.max_retries", 3)
	viper.SetDefault("cache.dir", "./data/chapters")
	viper.SetDefault("cache.ttl", 7*24*time.Hour)
	viper.SetDefault("cache.preload_workers", 4)
	viper.SetDefault("cache.download_timeout", 2*time.Minute)
	viper.SetDefault("cache.invalidate_cloud_text", false)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PATHSHALA")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.RAG = config.RAG.Normalize()

	if err := config.Providers.OpenAI.Validate(); err != nil {
		panic(err)
	}
	if err := config.Databases.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Databases.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Cache.Validate(); err != nil {
		panic(err)
	}
	if err := config.RAG.Validate(); err != nil {
		panic(err)
	}
	return &config
}
