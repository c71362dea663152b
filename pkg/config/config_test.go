package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mapLookup(env map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model.Name != "gpt-4o-mini" {
		t.Errorf("Expected model 'gpt-4o-mini', got '%s'", cfg.Model.Name)
	}
	if cfg.Model.MaxTokens != 500 {
		t.Errorf("Expected max tokens 500, got %d", cfg.Model.MaxTokens)
	}
	if cfg.Model.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", cfg.Model.MaxRetries)
	}
	if cfg.Processing.MaxFileSize != 2097152 {
		t.Errorf("Expected max file size 2097152, got %d", cfg.Processing.MaxFileSize)
	}
	if cfg.ProcessingTimeout() != 30*time.Second {
		t.Errorf("Expected processing timeout 30s, got %s", cfg.ProcessingTimeout())
	}

	err := cfg.Validate()
	if err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	fileConfig := Default()
	fileConfig.Model.Name = "gpt-4o"
	fileConfig.AWS.TopicARN = "arn:aws:sns:us-east-1:1:file-topic"

	data, err := json.MarshalIndent(fileConfig, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}

	err = os.WriteFile(configPath, data, 0600)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("MODEL", "")
	t.Setenv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:1:env-topic")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Model.Name != "gpt-4o" {
		t.Errorf("Expected model 'gpt-4o', got '%s'", cfg.Model.Name)
	}

	if cfg.AWS.TopicARN != "arn:aws:sns:us-east-1:1:env-topic" {
		t.Errorf("Expected env topic to win, got '%s'", cfg.AWS.TopicARN)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `model:
  provider: anthropic
  name: claude-sonnet-4-20250514
  max_tokens: 800
processing:
  upload_prefixes:
    - resumes/
dedup:
  backend: memory
`
	err := os.WriteFile(configPath, []byte(content), 0600)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("MODEL", "")
	t.Setenv("MAX_TOKENS", "")
	t.Setenv("DEDUP_BACKEND", "")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Model.Provider != ProviderAnthropic {
		t.Errorf("Expected provider '%s', got '%s'", ProviderAnthropic, cfg.Model.Provider)
	}
	if cfg.Model.MaxTokens != 800 {
		t.Errorf("Expected max tokens 800, got %d", cfg.Model.MaxTokens)
	}
	if len(cfg.Processing.UploadPrefixes) != 1 || cfg.Processing.UploadPrefixes[0] != "resumes/" {
		t.Errorf("Expected prefixes [resumes/], got %v", cfg.Processing.UploadPrefixes)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Processing.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("Expected default max file size, got %d", cfg.Processing.MaxFileSize)
	}
	if cfg.Dedup.Backend != DedupMemory {
		t.Errorf("Expected dedup backend '%s', got '%s'", DedupMemory, cfg.Dedup.Backend)
	}
}

func TestLoadNonexistent(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Error("Expected error loading nonexistent config, got nil")
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantError bool
		check     func(t *testing.T, cfg Config)
	}{
		{
			name: "all overrides",
			env: map[string]string{
				"OPENAI_API_KEY":     "sk-test",
				"MODEL":              "gpt-4o",
				"MAX_TOKENS":         "1000",
				"TEMPERATURE":        "0.2",
				"MAX_RETRIES":        "5",
				"PROCESSING_TIMEOUT": "45",
				"MAX_FILE_SIZE":      "1048576",
				"S3_BUCKET_NAME":     "bucket",
				"LOG_LEVEL":          "DEBUG",
				"REDIS_ADDR":         "localhost:6379",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Model.OpenAIAPIKey != "sk-test" {
					t.Errorf("Expected api key 'sk-test', got '%s'", cfg.Model.OpenAIAPIKey)
				}
				if cfg.Model.MaxTokens != 1000 {
					t.Errorf("Expected max tokens 1000, got %d", cfg.Model.MaxTokens)
				}
				if cfg.Model.Temperature != 0.2 {
					t.Errorf("Expected temperature 0.2, got %f", cfg.Model.Temperature)
				}
				if cfg.Model.MaxRetries != 5 {
					t.Errorf("Expected 5 retries, got %d", cfg.Model.MaxRetries)
				}
				if cfg.Processing.TimeoutSeconds != 45 {
					t.Errorf("Expected timeout 45, got %d", cfg.Processing.TimeoutSeconds)
				}
				if cfg.Processing.MaxFileSize != 1048576 {
					t.Errorf("Expected max file size 1048576, got %d", cfg.Processing.MaxFileSize)
				}
				if cfg.AWS.Bucket != "bucket" {
					t.Errorf("Expected bucket 'bucket', got '%s'", cfg.AWS.Bucket)
				}
				if cfg.Logging.Level != "DEBUG" {
					t.Errorf("Expected level 'DEBUG', got '%s'", cfg.Logging.Level)
				}
				if cfg.Dedup.RedisAddr != "localhost:6379" {
					t.Errorf("Expected redis addr 'localhost:6379', got '%s'", cfg.Dedup.RedisAddr)
				}
			},
		},
		{
			name: "empty values are ignored",
			env:  map[string]string{"MODEL": ""},
			check: func(t *testing.T, cfg Config) {
				if cfg.Model.Name != "gpt-4o-mini" {
					t.Errorf("Expected default model, got '%s'", cfg.Model.Name)
				}
			},
		},
		{
			name:      "bad integer",
			env:       map[string]string{"MAX_RETRIES": "three"},
			wantError: true,
		},
		{
			name:      "bad float",
			env:       map[string]string{"TEMPERATURE": "warm"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := applyEnv(&cfg, mapLookup(tt.env))
			if (err != nil) != tt.wantError {
				t.Fatalf("applyEnv() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(cfg *Config) {},
			wantError: false,
		},
		{
			name:      "unknown provider",
			mutate:    func(cfg *Config) { cfg.Model.Provider = "gemini" },
			wantError: true,
		},
		{
			name:      "zero retries",
			mutate:    func(cfg *Config) { cfg.Model.MaxRetries = 0 },
			wantError: true,
		},
		{
			name:      "temperature out of range",
			mutate:    func(cfg *Config) { cfg.Model.Temperature = 3 },
			wantError: true,
		},
		{
			name:      "no extensions",
			mutate:    func(cfg *Config) { cfg.Processing.SupportedExtensions = nil },
			wantError: true,
		},
		{
			name:      "redis without address",
			mutate:    func(cfg *Config) { cfg.Dedup.Backend = DedupRedis },
			wantError: true,
		},
		{
			name: "sqlite with path",
			mutate: func(cfg *Config) {
				cfg.Dedup.Backend = DedupSQLite
				cfg.Dedup.SQLitePath = "/tmp/seen.db"
			},
			wantError: false,
		},
		{
			name:      "unknown dedup backend",
			mutate:    func(cfg *Config) { cfg.Dedup.Backend = "etcd" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Model.OpenAIAPIKey = "openai-key"
	cfg.Model.AnthropicAPIKey = "anthropic-key"

	if got := cfg.APIKey(); got != "openai-key" {
		t.Errorf("Expected 'openai-key', got '%s'", got)
	}

	cfg.Model.Provider = ProviderAnthropic
	if got := cfg.APIKey(); got != "anthropic-key" {
		t.Errorf("Expected 'anthropic-key', got '%s'", got)
	}
}

func TestInitConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	err := InitConfig(configPath)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	_, err = os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}

	// A second call must refuse to overwrite.
	err = InitConfig(configPath)
	if err == nil {
		t.Error("Expected error when config file already exists")
	}

	// The generated file loads cleanly.
	t.Setenv("MODEL", "")
	_, err = Load(configPath)
	if err != nil {
		t.Errorf("Generated config failed to load: %v", err)
	}
}
