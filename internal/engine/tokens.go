package engine

// TokenEstimator maps a text to an estimated LLM token count. The context
// assembler takes the estimator as a value so a model-accurate tokenizer can
// be swapped in without touching the budget algorithm.
type TokenEstimator func(text string) int

// charsPerToken is the heuristic used by the default estimator: roughly four
// characters of English text per model token.
const charsPerToken = 4

// EstimateTokens is the default TokenEstimator: ceil(len/4).
func EstimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}
