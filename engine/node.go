package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fissio/fissio"
)

// maxToolIterations caps the agentic loop to prevent runaway tool cycles.
const maxToolIterations = 10

// segmentSeparator joins multiple upstream outputs into one node input.
const segmentSeparator = "\n\n---\n\n"

const defaultRouterPrompt = "Classify the following input and route to the appropriate target."

func joinSegments(segments []string) string {
	return strings.Join(segments, segmentSeparator)
}

// nodeOutput is what one node execution produces: its content and, for
// routers, the chosen downstream node IDs.
type nodeOutput struct {
	content string
	next    []string
}

// executeNode runs a single node. Routers classify and report their chosen
// branch, LLM and worker nodes call a model (with an agentic loop when tools
// are configured), and every other type copies its input through.
func (r *run) executeNode(ctx context.Context, node fissio.NodeConfig, model fissio.ModelConfig, input string, outgoingTargets []string) (nodeOutput, error) {
	step := r.state.nextStep()
	log := r.log.With("step", step, "node", node.ID, "type", string(node.Type))
	log.Info(node.Type.ActionLabel(), "model", model.Name, "tools", node.Tools)

	var span fissio.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, "pipeline.node",
			fissio.StringAttr("node.id", node.ID),
			fissio.StringAttr("node.type", string(node.Type)),
			fissio.StringAttr("model.id", model.ID))
		defer span.End()
	}

	start := time.Now()

	if node.Type.IsRouter() {
		out, err := r.executeRouter(ctx, log, node, model, input, outgoingTargets)
		if err != nil {
			if span != nil {
				span.Error(err)
			}
			return nodeOutput{}, err
		}
		log.Info("node complete", "elapsed", time.Since(start), "routed_to", out.next)
		return out, nil
	}

	if !node.Type.RequiresLLM() {
		log.Debug("pass-through", "chars", len(input))
		return nodeOutput{content: input}, nil
	}

	content, err := r.executeWithTools(ctx, log, node, model, input)
	if err != nil {
		if span != nil {
			span.Error(err)
		}
		return nodeOutput{}, err
	}
	log.Info("node complete", "elapsed", time.Since(start), "chars", len(content))
	return nodeOutput{content: content}, nil
}

// executeRouter classifies the input against the node's outgoing targets.
// The raw model reply becomes the node's content; the trimmed, lowercased
// reply must exactly match a target (case-insensitive) or the first target
// is chosen as the fallback.
func (r *run) executeRouter(ctx context.Context, log *slog.Logger, node fissio.NodeConfig, model fissio.ModelConfig, input string, targets []string) (nodeOutput, error) {
	client := r.clients(model)

	prompt := defaultRouterPrompt
	if node.Prompt != nil {
		prompt = *node.Prompt
	}
	routingPrompt := fmt.Sprintf("%s\n\nYou are a routing classifier. Based on the input, determine which target to route to.\nAvailable targets: [%s]\n\nIMPORTANT: Respond with ONLY the target name, nothing else. No explanation, no punctuation.",
		prompt, strings.Join(targets, ", "))

	content, err := client.Chat(ctx, routingPrompt, input)
	if err != nil {
		return nodeOutput{}, err
	}

	decision := strings.ToLower(strings.TrimSpace(content))
	log.Info("router decision", "decision", decision)

	for _, t := range targets {
		if strings.ToLower(t) == decision {
			return nodeOutput{content: content, next: []string{t}}, nil
		}
	}

	log.Warn("router decision matched no target, defaulting to first", "decision", decision, "targets", targets)
	if len(targets) == 0 {
		return nodeOutput{content: content}, nil
	}
	return nodeOutput{content: content, next: []string{targets[0]}}, nil
}

// executeWithTools calls the model, running the agentic loop when the node
// has tools configured: tool calls are executed in provider order, their
// results appended to the conversation, and the loop continues until the
// model answers with content or the iteration cap trips.
func (r *run) executeWithTools(ctx context.Context, log *slog.Logger, node fissio.NodeConfig, model fissio.ModelConfig, input string) (string, error) {
	client := r.clients(model)

	system := ""
	if node.Prompt != nil {
		system = *node.Prompt
	}

	if len(node.Tools) == 0 {
		content, err := client.Chat(ctx, system, input)
		if err != nil {
			return "", err
		}
		log.Debug("response", "chars", len(content))
		return content, nil
	}

	schemas := r.tools.SchemasFor(node.Tools)
	if len(schemas) == 0 {
		log.Warn("no configured tools found in registry", "tools", node.Tools)
		return client.Chat(ctx, system, input)
	}

	log.Info("agentic loop start", "tools", len(schemas))

	messages := []fissio.Message{fissio.UserMessage(input)}
	var pending []fissio.ToolCall

	for iterations := 1; ; iterations++ {
		if iterations > maxToolIterations {
			log.Warn("max tool iterations reached", "max", maxToolIterations)
			return "", &fissio.ErrLLM{
				Provider: "engine",
				Message:  fmt.Sprintf("Max tool iterations (%d) exceeded", maxToolIterations),
			}
		}

		result, err := client.ChatWithTools(ctx, system, messages, schemas, pending)
		if err != nil {
			return "", err
		}

		if len(result.ToolCalls) == 0 {
			log.Info("agentic loop complete", "iterations", iterations, "chars", len(result.Content))
			return result.Content, nil
		}

		for _, call := range result.ToolCalls {
			tool, ok := r.tools.Get(call.Name)
			if !ok {
				return "", &fissio.ErrLLM{Provider: "engine", Message: "Tool not found: " + call.Name}
			}

			log.Info("tool call", "tool", call.Name)
			out, err := tool.Execute(ctx, call.Args)
			if err != nil {
				return "", &fissio.ErrLLM{Provider: "engine", Message: fmt.Sprintf("Tool execution failed: %v", err)}
			}
			log.Debug("tool result", "tool", call.Name, "chars", len(out))

			messages = append(messages, fissio.ToolResultMessage(call.ID, out))
		}
		pending = result.ToolCalls
	}
}
