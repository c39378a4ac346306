// Package resolve picks a provider client for a model catalog entry.
package resolve

import (
	"os"
	"strings"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/provider/anthropic"
	"github.com/fissio/fissio/provider/openaicompat"
)

// Factory builds a client keyed off the entry's shape: Claude models go to
// the Anthropic API, entries with an API base go to that host's
// OpenAI-compatible endpoint, and everything else goes to hosted OpenAI.
// Keys come from ANTHROPIC_API_KEY and OPENAI_API_KEY; local hosts get a
// placeholder key since Ollama ignores auth.
func Factory(cfg fissio.ModelConfig) fissio.Client {
	switch {
	case strings.HasPrefix(cfg.Model, "claude-"):
		return anthropic.NewProvider(os.Getenv("ANTHROPIC_API_KEY"), cfg.Model)
	case cfg.APIBase != "":
		return openaicompat.NewProvider("ollama", cfg.Model, cfg.APIBase,
			openaicompat.WithName("ollama"))
	default:
		return openaicompat.NewProvider(os.Getenv("OPENAI_API_KEY"), cfg.Model, "")
	}
}

var _ fissio.ClientFactory = Factory
