package utils

// CountTokens estimates the number of tokens in the given text.
// Roughly 1 token per 4 characters; good enough for context-window warnings.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}
