package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"coursepilot"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"coursepilot"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// InstitutionName scopes the acceptability filter and prompts.
	InstitutionName string `envconfig:"INSTITUTION_NAME" default:"University of Waterloo"`

	// ChatQueueName is the NSQ topic chat jobs are published to. The
	// result topic is derived from it (see ResultTopic).
	ChatQueueName      string `envconfig:"CHAT_JOB_QUEUE_NAME" default:"chat.request"`
	WorkerConcurrency  int    `envconfig:"WORKER_CONCURRENCY" default:"10"`
	CallTimeoutSeconds int    `envconfig:"CALL_TIMEOUT_SECONDS" default:"30"`

	// RetrievalCandidates is how many documents to consider (over-fetch),
	// RetrievalLimit how many to keep after re-sorting.
	RetrievalCandidates int `envconfig:"RETRIEVAL_CANDIDATES" default:"10"`
	RetrievalLimit      int `envconfig:"RETRIEVAL_LIMIT" default:"5"`

	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.ChatQueueName == "" {
		return fmt.Errorf("%w: CHAT_JOB_QUEUE_NAME", ErrMissingRequired)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("%w: WORKER_CONCURRENCY must be at least 1", ErrMissingRequired)
	}
	if c.RetrievalLimit > c.RetrievalCandidates {
		return fmt.Errorf("%w: RETRIEVAL_LIMIT exceeds RETRIEVAL_CANDIDATES", ErrMissingRequired)
	}
	return nil
}

// ResultTopic is the NSQ topic chat results are published to.
func (c *Config) ResultTopic() string {
	return c.ChatQueueName + ".result"
}
