package providers

import (
	"fmt"
	"strings"

	"github.com/miniheartx/heartx/pkg/config"
	"github.com/miniheartx/heartx/pkg/transport"
)

// CreateProvider returns the provider named by service.provider, or nil
// when none is selected. The service then answers from rules alone.
func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Service.Provider))
	if name == "" {
		return nil, nil
	}

	opts := cfg.TransportOptions()
	// LLM calls are slower than rule lookups; the service bounds them with
	// its own context deadline instead.
	opts.Timeout = 0
	opts.CompressAbove = 0
	httpClient, err := transport.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("provider transport: %w", err)
	}

	switch name {
	case "openai":
		pc := cfg.Providers.OpenAI
		if pc.APIKey == "" {
			return nil, fmt.Errorf("no API key configured for openai (set OPENAI_API_KEY or providers.openai.api_key)")
		}
		return NewOpenAIProvider(pc.APIKey, pc.APIBase, pc.Model, httpClient), nil
	case "anthropic", "claude":
		pc := cfg.Providers.Anthropic
		if pc.APIKey == "" {
			return nil, fmt.Errorf("no API key configured for anthropic (set ANTHROPIC_API_KEY or providers.anthropic.api_key)")
		}
		return NewClaudeProvider(pc.APIKey, pc.APIBase, pc.Model, httpClient), nil
	case "compat":
		pc := cfg.Providers.Compat
		return NewCompatProvider(pc.APIKey, pc.APIBase, pc.Model, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
