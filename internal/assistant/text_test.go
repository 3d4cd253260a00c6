package assistant_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/assistant"
	"github.com/edgard/afina/internal/config"
)

func TestMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{text: "Афина, привет", want: true},
		{text: "эй afina что нового", want: true},
		{text: "АФИ?", want: true},
		{text: "спроси @afina_bot", want: true},
		{text: "покажи фотографии", want: false},
		{text: "афинаааа", want: true},
		{text: "спроси Афину про погоду", want: true},
		{text: "Афине привет", want: true},
		{text: "Afina's turn", want: true},
		{text: "скинь фотографии", want: false},
		{text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, assistant.Mentions(tt.text, config.DefaultMentionTokens, "afina_bot"))
		})
	}
}

func TestRemoveMention(t *testing.T) {
	t.Parallel()

	tokens := config.DefaultMentionTokens
	assert.Equal(t, "расскажи анекдот", assistant.RemoveMention("Афина, расскажи анекдот", tokens, ""))
	assert.Equal(t, "эй что нового", assistant.RemoveMention("эй афина: что нового", tokens, ""))
	assert.Equal(t, "как дела", assistant.RemoveMention("@afina_bot как дела", tokens, "afina_bot"))
	assert.Equal(t, "спроси про погоду", assistant.RemoveMention("спроси Афину про погоду", tokens, ""))
	assert.Equal(t, "без упоминания", assistant.RemoveMention("без упоминания", tokens, ""))
}

func TestChunkText(t *testing.T) {
	t.Parallel()

	words := make([]string, 1000)
	for i := range words {
		words[i] = "слово"
	}
	chunks := assistant.ChunkText(strings.Join(words, " "), 500)
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 384)
	assert.Len(t, strings.Fields(chunks[1]), 384)
	assert.Len(t, strings.Fields(chunks[2]), 232)

	assert.Equal(t, []string{"короткий текст"}, assistant.ChunkText("  короткий \n текст ", 500))
	assert.Nil(t, assistant.ChunkText("   ", 500))
	assert.Equal(t, []string{"a", "b"}, assistant.ChunkText("a b", 1))
}
