// Package tools assembles the built-in tool registry.
package tools

import (
	"os"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/tools/fetch"
	"github.com/fissio/fissio/tools/websearch"
)

// DefaultRegistry builds the standard registry: fetch_url is always
// available, web_search only when TAVILY_API_KEY is set.
func DefaultRegistry() *fissio.ToolRegistry {
	reg := fissio.NewToolRegistry()
	reg.Register(fetch.New())
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		reg.Register(websearch.New(key))
	}
	return reg
}
