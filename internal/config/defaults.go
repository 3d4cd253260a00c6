package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	DefaultListenAddr      = ":8080"
	DefaultWebhookPath     = "/api/telegram"
	DefaultWorkers         = 4
	DefaultQueueSize       = 256
	DefaultMaxBodyBytes    = 1 << 20
	DefaultTurnTimeout     = 3 * time.Minute
	DefaultShutdownTimeout = 15 * time.Second

	DefaultDBPath = "./afina.db"

	DefaultLLMProvider      = "openai"
	DefaultLLMBaseURL       = "https://openrouter.ai/api/v1"
	DefaultLLMModel         = "openai/gpt-4o"
	DefaultLLMTemperature   = 0.7
	DefaultLLMMaxTokens     = 1000
	DefaultSummaryMaxTokens = 500
	DefaultLLMTimeout       = 90 * time.Second
	DefaultLLMMaxRetries    = 2
	DefaultLLMRetryDelay    = 2 * time.Second

	DefaultEmbeddingProvider  = "openai"
	DefaultEmbeddingBaseURL   = "https://api.openai.com/v1"
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDimension = 1536

	DefaultTranscriptionProvider = "assemblyai"
	DefaultTranscriptionBaseURL  = "https://api.assemblyai.com"
	DefaultTranscriptionLanguage = "ru"
	DefaultPollInterval          = 3 * time.Second
	DefaultTranscriptionTimeout  = 5 * time.Minute
	DefaultMaxVoiceFileSize      = 15 * 1024 * 1024

	DefaultBatchThreshold    = 100
	DefaultRetainRecent      = 10
	DefaultFastSummaryCutoff = 50
	DefaultRecentFiller      = 10
	DefaultChunkTokens       = 500

	DefaultRetellMin          = 20
	DefaultRetellMax          = 400
	DefaultRetellPerSummary   = 100
	DefaultRetellMaxSummaries = 4
)

// DefaultMentionTokens are the name variants the assistant answers to.
var DefaultMentionTokens = []string{"afina", "афина", "afi", "афи"}

// DefaultMessages are the Russian texts the persona speaks with.
var DefaultMessages = MessagesConfig{
	PrivateDecline:        "Прости, %s, но лично могу общаться только с создателем💔",
	GroupFarewell:         "Не хочу никого обидеть, но я ухожу отсюда 👀",
	UnsupportedType:       "Прости, но я не поддерживаю такой тип данных 💩",
	VoiceTooLarge:         "Голосовое слишком длинное, такое я не осилю 🙈",
	TranscriptionFailed:   "Не получилось разобрать голосовое, попробуй ещё раз 🙏",
	GeneralError:          "Ой, что-то пошло не так. Попробуй чуть позже 🙏",
	RetellTooFew:          "Тут и пересказывать нечего, пролистай чуть выше 😉",
	RetellTooMany:         "Нет, столько я пересказывать не буду 🙅‍♀️",
	RetellNotEnough:       "Столько сообщений здесь ещё никто не написал 🤷‍♀️",
	RetellHeader:          "Пересказ последних %d сообщений:",
	RetellSent:            "Отправила пересказ тебе в личку 📬",
	RetellPrivateFallback: "Не могу написать тебе в личку, напиши мне сначала сам 📩",
}

// DefaultTasks registers the built-in scheduled tasks.
var DefaultTasks = map[string]any{
	"sql_maintenance":    map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
	"embedding_backfill": map[string]any{"enabled": true, "schedule": "0 */30 * * * *"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)
	v.SetDefault("logger.file", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.owner_id", 0)
	v.SetDefault("telegram.secret_token", "")
	v.SetDefault("telegram.bot_name", "Afina")

	v.SetDefault("webhook.listen_addr", DefaultListenAddr)
	v.SetDefault("webhook.public_url", "")
	v.SetDefault("webhook.path", DefaultWebhookPath)
	v.SetDefault("webhook.workers", DefaultWorkers)
	v.SetDefault("webhook.queue_size", DefaultQueueSize)
	v.SetDefault("webhook.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("webhook.turn_timeout", DefaultTurnTimeout)
	v.SetDefault("webhook.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", DefaultLLMBaseURL)
	v.SetDefault("llm.model", DefaultLLMModel)
	v.SetDefault("llm.temperature", DefaultLLMTemperature)
	v.SetDefault("llm.max_tokens", DefaultLLMMaxTokens)
	v.SetDefault("llm.summary_max_tokens", DefaultSummaryMaxTokens)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)
	v.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	v.SetDefault("llm.retry_delay", DefaultLLMRetryDelay)

	v.SetDefault("embedding.provider", DefaultEmbeddingProvider)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", DefaultEmbeddingBaseURL)
	v.SetDefault("embedding.model", DefaultEmbeddingModel)
	v.SetDefault("embedding.dimension", DefaultEmbeddingDimension)
	v.SetDefault("embedding.ollama_host", "")

	v.SetDefault("transcription.provider", DefaultTranscriptionProvider)
	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.base_url", DefaultTranscriptionBaseURL)
	v.SetDefault("transcription.language", DefaultTranscriptionLanguage)
	v.SetDefault("transcription.poll_interval", DefaultPollInterval)
	v.SetDefault("transcription.timeout", DefaultTranscriptionTimeout)
	v.SetDefault("transcription.max_file_size", DefaultMaxVoiceFileSize)

	v.SetDefault("pipeline.batch_threshold", DefaultBatchThreshold)
	v.SetDefault("pipeline.retain_recent", DefaultRetainRecent)
	v.SetDefault("pipeline.fast_summary_cutoff", DefaultFastSummaryCutoff)
	v.SetDefault("pipeline.recent_filler", DefaultRecentFiller)
	v.SetDefault("pipeline.chunk_tokens", DefaultChunkTokens)
	v.SetDefault("pipeline.mention_tokens", DefaultMentionTokens)

	v.SetDefault("retelling.min_messages", DefaultRetellMin)
	v.SetDefault("retelling.max_messages", DefaultRetellMax)
	v.SetDefault("retelling.per_summary", DefaultRetellPerSummary)
	v.SetDefault("retelling.max_summaries", DefaultRetellMaxSummaries)

	v.SetDefault("scheduler.tasks", DefaultTasks)

	v.SetDefault("messages.private_decline", DefaultMessages.PrivateDecline)
	v.SetDefault("messages.group_farewell", DefaultMessages.GroupFarewell)
	v.SetDefault("messages.unsupported_type", DefaultMessages.UnsupportedType)
	v.SetDefault("messages.voice_too_large", DefaultMessages.VoiceTooLarge)
	v.SetDefault("messages.transcription_failed", DefaultMessages.TranscriptionFailed)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.retell_too_few", DefaultMessages.RetellTooFew)
	v.SetDefault("messages.retell_too_many", DefaultMessages.RetellTooMany)
	v.SetDefault("messages.retell_not_enough", DefaultMessages.RetellNotEnough)
	v.SetDefault("messages.retell_header", DefaultMessages.RetellHeader)
	v.SetDefault("messages.retell_sent", DefaultMessages.RetellSent)
	v.SetDefault("messages.retell_private_fallback", DefaultMessages.RetellPrivateFallback)
}
