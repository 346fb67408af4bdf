package llm

// EstimateTokens provides a rough token estimation (1 token ≈ 4 characters)
func EstimateTokens(text string) int {
	return len(text) / 4
}

// FitsContext reports whether a prompt plus the requested completion fits in
// the backend's context window. Unknown windows always fit.
func FitsContext(b Backend, prompt string, maxTokens int) bool {
	window := b.GetContextWindow()
	if window <= 0 {
		return true
	}
	return EstimateTokens(prompt)+maxTokens <= window
}
