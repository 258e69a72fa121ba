// Package providers talks to the LLM backends the translation service can
// consult when the phrase table has no answer.
package providers

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type LLMResponse struct {
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason"`
	Usage        *UsageInfo `json:"usage,omitempty"`
}

// LLMProvider is one chat backend. options understands "max_tokens" (int)
// and "temperature" (float64).
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error)
	GetDefaultModel() string
}

func maxTokens(options map[string]interface{}, def int) int {
	if mt, ok := options["max_tokens"].(int); ok && mt > 0 {
		return mt
	}
	return def
}
