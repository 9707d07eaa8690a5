package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	OpenAI  OpenAI  `yaml:"openai"`
	Ingest  Ingest  `yaml:"ingest"`
	Index   Index   `yaml:"index"`
	Context Context `yaml:"context"`
	Session Session `yaml:"session"`
	Server  Server  `yaml:"server"`
	MCP     MCP     `yaml:"mcp"`
}

type OpenAI struct {
	Embedding EmbeddingConfig `yaml:"embedding" validate:"required"`
	Intent    ModelConfig     `yaml:"intent" validate:"required"`
	Reply     ModelConfig     `yaml:"reply" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type EmbeddingConfig struct {
	ModelConfig `yaml:",inline"`
	// Maximum texts sent per embedding request
	BatchSize int `yaml:"batch_size" example:"100"`
}

type Ingest struct {
	// Path to the exported chat log
	ChatFile string `yaml:"chat_file" example:"chats/_chat.txt"`
	// Messages per retrieval chunk
	ChunkSize int `yaml:"chunk_size" example:"5"`
}

type Index struct {
	// Directory holding the persisted vector index
	Dir string `yaml:"dir" example:"data/index"`
	// Number of chunks retrieved per query
	TopK int `yaml:"top_k" example:"5"`
}

type Context struct {
	// Character budget for the assembled context block
	MaxChars int `yaml:"max_chars" example:"6000"`
}

type Session struct {
	// Inactivity window before a session is evicted, in minutes
	TTLMinutes int `yaml:"ttl_minutes" example:"60"`
}

type Server struct {
	// HTTP listen address
	Addr string `yaml:"addr" example:":8000"`
}

type MCP struct {
	// Expose archive search as an MCP tool
	Enabled bool `yaml:"enabled" example:"false"`
	// MCP listen address
	Addr string `yaml:"addr" example:":8001"`
}

type Log struct {
	// Minimum console log level
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func (s Session) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.OpenAI.Embedding.BatchSize <= 0 {
		c.OpenAI.Embedding.BatchSize = 100
	}
	if c.Ingest.ChatFile == "" {
		c.Ingest.ChatFile = "chats/_chat.txt"
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 5
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "data/index"
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 5
	}
	if c.Context.MaxChars <= 0 {
		c.Context.MaxChars = 6000
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = 60
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.MCP.Addr == "" {
		c.MCP.Addr = ":8001"
	}
}
