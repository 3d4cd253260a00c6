// Package config defines the Afina configuration, loads it with viper from
// config.yaml, .env and AFINA_* environment variables, and validates it.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the root configuration for every Afina component.
type Config struct {
	Logger        LoggerConfig        `mapstructure:"logger"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Database      DatabaseConfig      `mapstructure:"database"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Retelling     RetellingConfig     `mapstructure:"retelling"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Messages      MessagesConfig      `mapstructure:"messages"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
	// File, when set, receives a JSON copy of every record.
	File string `mapstructure:"file"`
}

// TelegramConfig holds bot credentials and the single owner.
type TelegramConfig struct {
	Token       string `mapstructure:"token"        validate:"required"`
	OwnerID     int64  `mapstructure:"owner_id"     validate:"required,gt=0"`
	SecretToken string `mapstructure:"secret_token" validate:"required"`
	BotName     string `mapstructure:"bot_name"     validate:"required"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// WebhookConfig controls the inbound HTTP endpoint and its work queue.
type WebhookConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      validate:"required"`
	// PublicURL, when set, is registered with Telegram at startup.
	PublicURL       string        `mapstructure:"public_url"       validate:"omitempty,url"`
	Path            string        `mapstructure:"path"             validate:"required,startswith=/"`
	Workers         int           `mapstructure:"workers"          validate:"gt=0"`
	QueueSize       int           `mapstructure:"queue_size"       validate:"gt=0"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   validate:"gt=0"`
	TurnTimeout     time.Duration `mapstructure:"turn_timeout"     validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider         string        `mapstructure:"provider"           validate:"oneof=gemini openai"`
	APIKey           string        `mapstructure:"api_key"            validate:"required"`
	BaseURL          string        `mapstructure:"base_url"           validate:"omitempty,url"`
	Model            string        `mapstructure:"model"              validate:"required"`
	Temperature      float32       `mapstructure:"temperature"        validate:"gte=0,lte=2"`
	MaxTokens        int           `mapstructure:"max_tokens"         validate:"gt=0"`
	SummaryMaxTokens int           `mapstructure:"summary_max_tokens" validate:"gt=0"`
	Timeout          time.Duration `mapstructure:"timeout"            validate:"gt=0"`
	MaxRetries       int           `mapstructure:"max_retries"        validate:"gte=0,lte=10"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"        validate:"gte=0"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"    validate:"oneof=openai ollama"`
	APIKey     string `mapstructure:"api_key"     validate:"required_if=Provider openai"`
	BaseURL    string `mapstructure:"base_url"    validate:"omitempty,url"`
	Model      string `mapstructure:"model"       validate:"required"`
	Dimension  int    `mapstructure:"dimension"   validate:"gt=0"`
	OllamaHost string `mapstructure:"ollama_host" validate:"required_if=Provider ollama"`
}

// TranscriptionConfig selects the speech-to-text backend.
type TranscriptionConfig struct {
	Provider     string        `mapstructure:"provider"      validate:"oneof=assemblyai whisper"`
	APIKey       string        `mapstructure:"api_key"       validate:"required"`
	BaseURL      string        `mapstructure:"base_url"      validate:"omitempty,url"`
	Language     string        `mapstructure:"language"      validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout"       validate:"gt=0"`
	MaxFileSize  int64         `mapstructure:"max_file_size" validate:"gt=0"`
}

// PipelineConfig holds batching and context-assembly thresholds.
type PipelineConfig struct {
	BatchThreshold    int      `mapstructure:"batch_threshold"     validate:"gt=0"`
	RetainRecent      int      `mapstructure:"retain_recent"       validate:"gt=0"`
	FastSummaryCutoff int      `mapstructure:"fast_summary_cutoff" validate:"gt=0"`
	RecentFiller      int      `mapstructure:"recent_filler"       validate:"gt=0"`
	ChunkTokens       int      `mapstructure:"chunk_tokens"        validate:"gt=0"`
	MentionTokens     []string `mapstructure:"mention_tokens"      validate:"min=1,dive,required"`
}

// RetellingConfig bounds recap requests.
type RetellingConfig struct {
	MinMessages  int `mapstructure:"min_messages"  validate:"gt=0"`
	MaxMessages  int `mapstructure:"max_messages"  validate:"gtfield=MinMessages"`
	PerSummary   int `mapstructure:"per_summary"   validate:"gt=0"`
	MaxSummaries int `mapstructure:"max_summaries" validate:"gt=0"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a registered task on a cron schedule (with seconds).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-visible text.
type MessagesConfig struct {
	PrivateDecline        string `mapstructure:"private_decline"         validate:"required"`
	GroupFarewell         string `mapstructure:"group_farewell"          validate:"required"`
	UnsupportedType       string `mapstructure:"unsupported_type"        validate:"required"`
	VoiceTooLarge         string `mapstructure:"voice_too_large"         validate:"required"`
	TranscriptionFailed   string `mapstructure:"transcription_failed"    validate:"required"`
	GeneralError          string `mapstructure:"general_error"           validate:"required"`
	RetellTooFew          string `mapstructure:"retell_too_few"          validate:"required"`
	RetellTooMany         string `mapstructure:"retell_too_many"         validate:"required"`
	RetellNotEnough       string `mapstructure:"retell_not_enough"       validate:"required"`
	RetellHeader          string `mapstructure:"retell_header"           validate:"required"`
	RetellSent            string `mapstructure:"retell_sent"             validate:"required"`
	RetellPrivateFallback string `mapstructure:"retell_private_fallback" validate:"required"`
}
