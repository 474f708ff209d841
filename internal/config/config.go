package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Grader   GraderConfig   `mapstructure:"grader"`
	Results  ResultsConfig  `mapstructure:"results"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Bank     BankConfig     `mapstructure:"bank"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig is optional; an empty URL keeps the dedupe window in memory.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// KafkaConfig is optional; with no brokers enrichment requests travel over
// an in-process channel.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

type GraderConfig struct {
	// Backend is one of "anthropic", "cli", "mock" or "disabled".
	Backend string        `mapstructure:"backend"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	CLIPath string        `mapstructure:"cli_path"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Delay paces consecutive grading calls.
	Delay time.Duration `mapstructure:"delay"`
}

type ResultsConfig struct {
	DedupeWindow time.Duration `mapstructure:"dedupe_window"`
}

type ScoringConfig struct {
	MaxEditDistance int `mapstructure:"max_edit_distance"`
}

type BankConfig struct {
	Path string `mapstructure:"path"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var envBindings = map[string]string{
	"server.port":               "PORT",
	"server.mode":               "SERVER_MODE",
	"database.host":             "DB_HOST",
	"database.port":             "DB_PORT",
	"database.user":             "DB_USER",
	"database.password":         "DB_PASSWORD",
	"database.name":             "DB_NAME",
	"database.sslmode":          "DB_SSLMODE",
	"redis.url":                 "REDIS_URL",
	"kafka.brokers":             "KAFKA_BROKERS",
	"kafka.topic":               "KAFKA_TOPIC",
	"kafka.consumer_group":      "KAFKA_CONSUMER_GROUP",
	"grader.backend":            "GRADER_BACKEND",
	"grader.api_key":            "ANTHROPIC_API_KEY",
	"grader.model":              "ANTHROPIC_MODEL",
	"grader.cli_path":           "CLAUDE_CLI_PATH",
	"grader.timeout":            "GRADER_TIMEOUT",
	"grader.delay":              "GRADER_DELAY",
	"results.dedupe_window":     "DEDUPE_WINDOW",
	"scoring.max_edit_distance": "SCORING_MAX_EDIT_DISTANCE",
	"bank.path":                 "QUESTION_BANK_PATH",
	"jwt.secret":                "JWT_SECRET",
	"log.file":                  "LOG_FILE",
	"cors.allowed_origins":      "CORS_ALLOWED_ORIGINS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "versant_user")
	v.SetDefault("database.password", "versant_password")
	v.SetDefault("database.name", "versant_prep")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.url", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "results.enrichment")
	v.SetDefault("kafka.consumer_group", "versant-enricher")
	v.SetDefault("grader.backend", "anthropic")
	v.SetDefault("grader.api_key", "")
	v.SetDefault("grader.model", "claude-sonnet-4-5")
	v.SetDefault("grader.cli_path", "claude")
	v.SetDefault("grader.timeout", 60*time.Second)
	v.SetDefault("grader.delay", 2*time.Second)
	v.SetDefault("results.dedupe_window", 5*time.Minute)
	v.SetDefault("scoring.max_edit_distance", 0)
	v.SetDefault("bank.path", "")
	v.SetDefault("jwt.secret", "versant-prep-dev-signing-key")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in path, and the environment, in increasing precedence.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
