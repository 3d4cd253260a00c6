package assistant

import (
	"strings"
	"unicode"
)

// Mentions reports whether any word of text starts with one of tokens or
// equals the @username of the bot, ignoring case and surrounding punctuation.
// Prefix matching keeps inflected forms such as "Афину" or "Афине".
func Mentions(text string, tokens []string, botUsername string) bool {
	for _, word := range strings.Fields(text) {
		if matchesToken(word, tokens, botUsername) {
			return true
		}
	}
	return false
}

// RemoveMention drops the first mentioning word and the separators after it.
func RemoveMention(text string, tokens []string, botUsername string) string {
	words := strings.Fields(text)
	for i, word := range words {
		if matchesToken(word, tokens, botUsername) {
			words = append(words[:i:i], words[i+1:]...)
			break
		}
	}
	return strings.TrimLeft(strings.Join(words, " "), ",:; ")
}

func matchesToken(word string, tokens []string, botUsername string) bool {
	clean := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) && r != '@'
	}))
	if botUsername != "" && clean == "@"+strings.ToLower(botUsername) {
		return true
	}
	for _, token := range tokens {
		if token != "" && strings.HasPrefix(clean, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
