package assistant

import (
	"math"
	"strings"
)

const tokensPerWord = 1.3

// ChunkText splits text into word-aligned chunks of at most maxTokens
// estimated tokens.
func ChunkText(text string, maxTokens int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	maxWords := int(math.Floor(float64(maxTokens) / tokensPerWord))
	if maxWords < 1 {
		maxWords = 1
	}

	chunks := make([]string, 0, len(words)/maxWords+1)
	for i := 0; i < len(words); i += maxWords {
		end := min(i+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
