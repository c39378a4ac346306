// Package fissio is a pipeline execution engine for LLM-powered agent
// workflows in Go.
//
// Users declare a directed graph whose nodes are processing steps (most of
// them LLM invocations, some deterministic) and whose edges describe
// sequential, parallel, conditional, or dynamic data flow. The engine
// executes a graph against a user message, streams output to the caller,
// and reports per-call token and timing metrics.
//
// # Quick Start
//
// Build a pipeline with the fluent builder and run it:
//
//	cfg := fissio.NewPipeline("triage", "Support triage").
//		NodeWithPrompt("classify", fissio.NodeRouter, "Route the ticket").
//		NodeWithPrompt("billing", fissio.NodeLLM, "You handle billing questions").
//		NodeWithPrompt("bugs", fissio.NodeLLM, "You handle bug reports").
//		Edge("input", "classify").
//		EdgeTyped("classify", "billing", fissio.EdgeConditional).
//		EdgeTyped("classify", "bugs", fissio.EdgeConditional).
//		Edge("billing", "output").
//		Build()
//
//	eng := engine.New(cfg, models, defaultModel, nil)
//	out, err := eng.Execute(ctx, "I was double charged", nil)
//
// # Core Contracts
//
// The root package defines the contracts that all components implement:
//
//   - [Client] — LLM backend (chat, streaming, tool calling)
//   - [Tool] — pluggable capability with a JSON-schema parameter contract
//   - [ToolRegistry] — name-keyed tool lookup shared across requests
//   - [PipelineStore] — persistence for user-defined pipeline templates
//   - [Tracer] — span creation for engine and provider instrumentation
//
// # Included Implementations
//
// Providers: provider/openaicompat (OpenAI-compatible APIs), provider/anthropic
// (Anthropic messages protocol), provider/ollama (native local runtime with
// verbose metrics). provider/resolve picks a backend from the model name.
// Storage: store/sqlite (local), store/postgres, store/libsql (Turso).
// Tools: tools/fetch (URL fetch + extraction), tools/websearch (Tavily).
//
// See cmd/fissio for the HTTP/SSE server that ties everything together.
package fissio
