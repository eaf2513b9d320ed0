package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for a Dead Drop process
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Server   ServerConfig   `yaml:"server"`
	Services ServicesConfig `yaml:"services"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig tunes the blackboard controller and fan-out
type EngineConfig struct {
	// MaxTriggersPerCase is the anti-loop cap: total tasks a case may
	// enqueue before it is considered quiesced.
	MaxTriggersPerCase int `yaml:"max_triggers_per_case"`

	// DefaultCooldownSeconds applies to sources registered without an
	// explicit cooldown.
	DefaultCooldownSeconds float64 `yaml:"default_cooldown_seconds"`

	// HandlerTimeoutSeconds bounds a single knowledge-source run.
	HandlerTimeoutSeconds float64 `yaml:"handler_timeout_seconds"`

	// FanoutSendTimeoutSeconds is how long one subscriber send may take
	// before the subscriber is dropped.
	FanoutSendTimeoutSeconds float64 `yaml:"fanout_send_timeout_seconds"`

	// WorkerConcurrency is the number of controller workers. The dedup
	// invariant holds for any value; 1 preserves strict global ordering.
	WorkerConcurrency int `yaml:"worker_concurrency"`

	// TriggerResetAfterSeconds re-arms a case's trigger budget after it
	// has had no controller activity for this long. 0 disables the reset,
	// meaning a case that exhausts its budget stays quiesced forever.
	TriggerResetAfterSeconds float64 `yaml:"trigger_reset_after_seconds"`

	// SubscriberBuffer is the per-subscriber outbound queue length.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// ServerConfig configures the HTTP/WebSocket boundary
type ServerConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	CORSOrigins    []string `yaml:"cors_origins"`
	UploadDir      string   `yaml:"upload_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// ServicesConfig carries external service credentials. Every key is
// optional; a missing key disables that service and the relevant
// knowledge sources degrade to empty results.
type ServicesConfig struct {
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	GeminiModel       string `yaml:"gemini_model"`
	FactCheckAPIKey   string `yaml:"factcheck_api_key"`
	TwelveLabsAPIKey  string `yaml:"twelvelabs_api_key"`
	TwelveLabsIndexID string `yaml:"twelvelabs_index_id"`
	ElevenLabsAPIKey  string `yaml:"elevenlabs_api_key"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`
}

// ArchiveConfig configures the bbolt archive for published artifacts
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxTriggersPerCase:       10,
			DefaultCooldownSeconds:   2.0,
			HandlerTimeoutSeconds:    30.0,
			FanoutSendTimeoutSeconds: 1.0,
			WorkerConcurrency:        1,
			TriggerResetAfterSeconds: 0,
			SubscriberBuffer:         64,
		},
		Server: ServerConfig{
			ListenAddr:     ":8000",
			CORSOrigins:    []string{"http://localhost:3000"},
			UploadDir:      "/tmp/wolftrace-uploads",
			MaxUploadBytes: 25 << 20,
		},
		Archive: ArchiveConfig{
			Path: "deaddrop.db",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load reads configuration from an optional YAML file, applies environment
// overrides for secrets, and validates the result. An empty path loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment so credentials never
// have to live in the config file.
func (c *Config) applyEnv() {
	envOverride(&c.Services.GeminiAPIKey, "DEADDROP_GEMINI_API_KEY")
	envOverride(&c.Services.GeminiModel, "DEADDROP_GEMINI_MODEL")
	envOverride(&c.Services.FactCheckAPIKey, "DEADDROP_FACTCHECK_API_KEY")
	envOverride(&c.Services.TwelveLabsAPIKey, "DEADDROP_TWELVELABS_API_KEY")
	envOverride(&c.Services.TwelveLabsIndexID, "DEADDROP_TWELVELABS_INDEX_ID")
	envOverride(&c.Services.ElevenLabsAPIKey, "DEADDROP_ELEVENLABS_API_KEY")
	envOverride(&c.Services.ElevenLabsVoiceID, "DEADDROP_ELEVENLABS_VOICE_ID")
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the engine refuses to start with
func (c *Config) Validate() error {
	if c.Engine.MaxTriggersPerCase < 1 {
		return fmt.Errorf("engine.max_triggers_per_case must be >= 1, got %d", c.Engine.MaxTriggersPerCase)
	}
	if c.Engine.DefaultCooldownSeconds < 0 {
		return fmt.Errorf("engine.default_cooldown_seconds must be >= 0, got %v", c.Engine.DefaultCooldownSeconds)
	}
	if c.Engine.HandlerTimeoutSeconds < 0 {
		return fmt.Errorf("engine.handler_timeout_seconds must be >= 0, got %v", c.Engine.HandlerTimeoutSeconds)
	}
	if c.Engine.FanoutSendTimeoutSeconds <= 0 {
		return fmt.Errorf("engine.fanout_send_timeout_seconds must be > 0, got %v", c.Engine.FanoutSendTimeoutSeconds)
	}
	if c.Engine.WorkerConcurrency < 1 {
		return fmt.Errorf("engine.worker_concurrency must be >= 1, got %d", c.Engine.WorkerConcurrency)
	}
	if c.Engine.TriggerResetAfterSeconds < 0 {
		return fmt.Errorf("engine.trigger_reset_after_seconds must be >= 0, got %v", c.Engine.TriggerResetAfterSeconds)
	}
	if c.Engine.SubscriberBuffer < 1 {
		return fmt.Errorf("engine.subscriber_buffer must be >= 1, got %d", c.Engine.SubscriberBuffer)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("server.max_upload_bytes must be >= 1, got %d", c.Server.MaxUploadBytes)
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("archive.path must not be empty")
	}
	return nil
}

// Duration views over the float second fields.

func (e EngineConfig) DefaultCooldown() time.Duration {
	return secondsToDuration(e.DefaultCooldownSeconds)
}

func (e EngineConfig) HandlerTimeout() time.Duration {
	return secondsToDuration(e.HandlerTimeoutSeconds)
}

func (e EngineConfig) FanoutSendTimeout() time.Duration {
	return secondsToDuration(e.FanoutSendTimeoutSeconds)
}

func (e EngineConfig) TriggerResetAfter() time.Duration {
	return secondsToDuration(e.TriggerResetAfterSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
