package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/config"
)

const validYAML = `
telegram:
  token: "123:abc"
  owner_id: 726008803
  secret_token: "s3cret"
llm:
  api_key: "llm-key"
embedding:
  api_key: "emb-key"
transcription:
  api_key: "stt-key"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(726008803), cfg.Telegram.OwnerID)
	assert.Equal(t, "Afina", cfg.Telegram.BotName)
	assert.Equal(t, 100, cfg.Pipeline.BatchThreshold)
	assert.Equal(t, 10, cfg.Pipeline.RetainRecent)
	assert.Equal(t, 50, cfg.Pipeline.FastSummaryCutoff)
	assert.Equal(t, []string{"afina", "афина", "afi", "афи"}, cfg.Pipeline.MentionTokens)
	assert.Equal(t, int64(15*1024*1024), cfg.Transcription.MaxFileSize)
	assert.Equal(t, 3*time.Second, cfg.Transcription.PollInterval)
	assert.Equal(t, 20, cfg.Retelling.MinMessages)
	assert.Equal(t, 400, cfg.Retelling.MaxMessages)
	assert.Equal(t, config.DefaultMessages.GroupFarewell, cfg.Messages.GroupFarewell)

	require.Contains(t, cfg.Scheduler.Tasks, "sql_maintenance")
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.Equal(t, "0 0 4 * * *", cfg.Scheduler.Tasks["sql_maintenance"].Schedule)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML+`
pipeline:
  batch_threshold: 50
webhook:
  turn_timeout: 45s
scheduler:
  tasks:
    embedding_backfill:
      enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Pipeline.BatchThreshold)
	assert.Equal(t, 45*time.Second, cfg.Webhook.TurnTimeout)
	assert.False(t, cfg.Scheduler.Tasks["embedding_backfill"].Enabled)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("AFINA_TELEGRAM_OWNER_ID", "42")
	t.Setenv("AFINA_LLM_PROVIDER", "gemini")

	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Telegram.OwnerID)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing bot token",
			content: `
telegram:
  owner_id: 1
  secret_token: "s"
llm: {api_key: "k"}
embedding: {api_key: "k"}
transcription: {api_key: "k"}
`,
		},
		{
			name: "unknown llm provider",
			content: `
telegram: {token: "t", owner_id: 1, secret_token: "s"}
llm: {api_key: "k", provider: "claude"}
embedding: {api_key: "k"}
transcription: {api_key: "k"}
`,
		},
		{
			name:    "retelling bounds inverted",
			content: validYAML + "retelling:\n  min_messages: 500\n",
		},
		{
			name:    "enabled task without schedule",
			content: validYAML + "scheduler:\n  tasks:\n    custom:\n      enabled: true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrValidation)
		})
	}
}
