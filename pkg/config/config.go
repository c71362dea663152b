package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ProviderOpenAI selects the OpenAI chat completions API.
	ProviderOpenAI = "openai"
	// ProviderAnthropic selects the Anthropic Messages API.
	ProviderAnthropic = "anthropic"

	// DedupNone disables duplicate detection.
	DedupNone = "none"
	// DedupMemory keeps fingerprints in process memory.
	DedupMemory = "memory"
	// DedupRedis keeps fingerprints in Redis.
	DedupRedis = "redis"
	// DedupSQLite keeps fingerprints in a SQLite file.
	DedupSQLite = "sqlite"

	// DefaultMaxFileSize is 2 MiB.
	DefaultMaxFileSize = 2 * 1024 * 1024
)

// Config is the process configuration. It is loaded once at start and passed by value.
type Config struct {
	Model      ModelConfig      `json:"model" yaml:"model"`
	Processing ProcessingConfig `json:"processing" yaml:"processing"`
	AWS        AWSConfig        `json:"aws" yaml:"aws"`
	Dedup      DedupConfig      `json:"dedup" yaml:"dedup"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// ModelConfig holds language model settings.
type ModelConfig struct {
	Provider              string  `json:"provider" yaml:"provider"`
	Name                  string  `json:"name" yaml:"name"`
	OpenAIAPIKey          string  `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`
	AnthropicAPIKey       string  `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"`
	BaseURL               string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxTokens             int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature           float64 `json:"temperature" yaml:"temperature"`
	MaxRetries            int     `json:"max_retries" yaml:"max_retries"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// ProcessingConfig holds per-file limits and the upload gate.
type ProcessingConfig struct {
	MaxFileSize         int64    `json:"max_file_size" yaml:"max_file_size"`
	TimeoutSeconds      int      `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryDelaySeconds   int      `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	SupportedExtensions []string `json:"supported_extensions" yaml:"supported_extensions"`
	UploadPrefixes      []string `json:"upload_prefixes" yaml:"upload_prefixes"`
}

// AWSConfig names the storage bucket and the result topic.
type AWSConfig struct {
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	TopicARN string `json:"topic_arn,omitempty" yaml:"topic_arn,omitempty"`
}

// DedupConfig selects the seen-before store.
type DedupConfig struct {
	Backend    string `json:"backend" yaml:"backend"`
	RedisAddr  string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	TTLHours   int    `json:"ttl_hours" yaml:"ttl_hours"`
}

// ServerConfig holds settings for the HTTP event receiver.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoggingConfig holds log level and output format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() (cfg Config) {
	cfg = Config{
		Model: ModelConfig{
			Provider:              ProviderOpenAI,
			Name:                  "gpt-4o-mini",
			MaxTokens:             500,
			Temperature:           0,
			MaxRetries:            3,
			RequestTimeoutSeconds: 60,
		},
		Processing: ProcessingConfig{
			MaxFileSize:         DefaultMaxFileSize,
			TimeoutSeconds:      30,
			RetryDelaySeconds:   1,
			SupportedExtensions: []string{".pdf", ".docx"},
			UploadPrefixes:      []string{"uploads/", "user-uploads/", "temp-uploads/"},
		},
		Dedup: DedupConfig{
			Backend:  DedupNone,
			TTLHours: 24 * 30,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
	return cfg
}

// Load builds the configuration from defaults, an optional file, and the environment.
// An empty path skips the file.
func Load(configPath string) (cfg Config, err error) {
	cfg = Default()

	if configPath != "" {
		err = readFile(configPath, &cfg)
		if err != nil {
			return cfg, err
		}
	}

	err = applyEnv(&cfg, os.LookupEnv)
	if err != nil {
		err = errors.Wrap(err, "invalid environment override")
		return cfg, err
	}

	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

func readFile(path string, cfg *Config) (err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Errorf("config file not found: %s (run 'resume-analyzer init' to create)", path)
			return err
		}
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to parse config file: %s", path)
		return err
	}

	return err
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) (err error) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && v != "" {
			var n int
			n, err = strconv.Atoi(v)
			if err != nil {
				err = errors.Wrapf(err, "%s must be an integer", key)
				return
			}
			*dst = n
		}
	}

	str("MODEL_PROVIDER", &cfg.Model.Provider)
	str("MODEL", &cfg.Model.Name)
	str("OPENAI_API_KEY", &cfg.Model.OpenAIAPIKey)
	str("ANTHROPIC_API_KEY", &cfg.Model.AnthropicAPIKey)
	str("MODEL_BASE_URL", &cfg.Model.BaseURL)
	integer("MAX_TOKENS", &cfg.Model.MaxTokens)
	integer("MAX_RETRIES", &cfg.Model.MaxRetries)
	integer("MODEL_TIMEOUT", &cfg.Model.RequestTimeoutSeconds)
	integer("PROCESSING_TIMEOUT", &cfg.Processing.TimeoutSeconds)
	integer("RETRY_DELAY", &cfg.Processing.RetryDelaySeconds)
	integer("DEDUP_TTL_HOURS", &cfg.Dedup.TTLHours)
	if err != nil {
		return err
	}

	if v, ok := lookup("TEMPERATURE"); ok && v != "" {
		cfg.Model.Temperature, err = strconv.ParseFloat(v, 64)
		if err != nil {
			err = errors.Wrap(err, "TEMPERATURE must be a number")
			return err
		}
	}

	if v, ok := lookup("MAX_FILE_SIZE"); ok && v != "" {
		cfg.Processing.MaxFileSize, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			err = errors.Wrap(err, "MAX_FILE_SIZE must be an integer")
			return err
		}
	}

	str("S3_BUCKET_NAME", &cfg.AWS.Bucket)
	str("SNS_TOPIC_ARN", &cfg.AWS.TopicARN)
	str("AWS_REGION", &cfg.AWS.Region)
	str("DEDUP_BACKEND", &cfg.Dedup.Backend)
	str("REDIS_ADDR", &cfg.Dedup.RedisAddr)
	str("SQLITE_PATH", &cfg.Dedup.SQLitePath)
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	return err
}

// Validate checks ranges and required combinations.
func (c *Config) Validate() (err error) {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		err = errors.Errorf("model.provider must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.Model.Provider)
		return err
	}

	if c.Model.Name == "" {
		err = errors.New("model.name is required")
		return err
	}

	if c.Model.MaxTokens <= 0 {
		err = errors.New("model.max_tokens must be positive")
		return err
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		err = errors.New("model.temperature must be between 0 and 2")
		return err
	}

	if c.Model.MaxRetries < 1 {
		err = errors.New("model.max_retries must be at least 1")
		return err
	}

	if c.Model.RequestTimeoutSeconds <= 0 {
		err = errors.New("model.request_timeout_seconds must be positive")
		return err
	}

	if c.Processing.MaxFileSize <= 0 {
		err = errors.New("processing.max_file_size must be positive")
		return err
	}

	if c.Processing.TimeoutSeconds <= 0 {
		err = errors.New("processing.timeout_seconds must be positive")
		return err
	}

	if c.Processing.RetryDelaySeconds < 0 {
		err = errors.New("processing.retry_delay_seconds must not be negative")
		return err
	}

	if len(c.Processing.SupportedExtensions) == 0 {
		err = errors.New("processing.supported_extensions must not be empty")
		return err
	}

	if len(c.Processing.UploadPrefixes) == 0 {
		err = errors.New("processing.upload_prefixes must not be empty")
		return err
	}

	switch c.Dedup.Backend {
	case DedupNone, DedupMemory:
	case DedupRedis:
		if c.Dedup.RedisAddr == "" {
			err = errors.New("dedup.redis_addr is required for the redis backend (set in config or REDIS_ADDR env var)")
			return err
		}
	case DedupSQLite:
		if c.Dedup.SQLitePath == "" {
			err = errors.New("dedup.sqlite_path is required for the sqlite backend (set in config or SQLITE_PATH env var)")
			return err
		}
	default:
		err = errors.Errorf("unknown dedup.backend: %s", c.Dedup.Backend)
		return err
	}

	return err
}

// APIKey returns the key for the selected provider.
func (c Config) APIKey() (key string) {
	key = c.Model.OpenAIAPIKey
	if c.Model.Provider == ProviderAnthropic {
		key = c.Model.AnthropicAPIKey
	}
	return key
}

// RequestTimeout returns the per-attempt model call timeout.
func (c Config) RequestTimeout() (d time.Duration) {
	d = time.Duration(c.Model.RequestTimeoutSeconds) * time.Second
	return d
}

// ProcessingTimeout returns the per-file timeout applied to I/O calls.
func (c Config) ProcessingTimeout() (d time.Duration) {
	d = time.Duration(c.Processing.TimeoutSeconds) * time.Second
	return d
}

// RetryDelay returns the base delay between publish retries.
func (c Config) RetryDelay() (d time.Duration) {
	d = time.Duration(c.Processing.RetryDelaySeconds) * time.Second
	return d
}

// DedupTTL returns how long a fingerprint is remembered.
func (c Config) DedupTTL() (d time.Duration) {
	d = time.Duration(c.Dedup.TTLHours) * time.Hour
	return d
}

// InitConfig writes a default configuration file. The format follows the file extension.
func InitConfig(configPath string) (err error) {
	path := configPath
	if path == "" {
		var homeDir string
		homeDir, err = os.UserHomeDir()
		if err != nil {
			err = errors.Wrap(err, "failed to get user home directory")
			return err
		}
		path = filepath.Join(homeDir, ".resume-analyzer", "config.yaml")
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return err
	}

	defaultConfig := Default()
	defaultConfig.Model.OpenAIAPIKey = "sk-..."
	defaultConfig.AWS = AWSConfig{
		Region:   "us-east-1",
		Bucket:   "resume-uploads",
		TopicARN: "arn:aws:sns:us-east-1:123456789012:resume-analysis",
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(defaultConfig)
	default:
		data, err = json.MarshalIndent(defaultConfig, "", "  ")
	}
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return err
	}

	return err
}
