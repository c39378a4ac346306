package fissio

import (
	"context"
	"encoding/json"
	"fmt"
)

// storedNode and storedEdge mirror the document shape persisted in a
// PipelineRecord's Config: nodes keyed by node_type the way the editor
// emits them, edges with scalar-or-array endpoints and the edge_type
// omitted for direct edges.
type storedNode struct {
	ID       string   `json:"id"`
	NodeType string   `json:"node_type"`
	Model    *string  `json:"model"`
	Prompt   *string  `json:"prompt"`
	Tools    []string `json:"tools,omitempty"`
}

type storedEdge struct {
	From     Endpoint `json:"from"`
	To       Endpoint `json:"to"`
	EdgeType string   `json:"edge_type,omitempty"`
}

type storedConfig struct {
	Nodes []storedNode `json:"nodes"`
	Edges []storedEdge `json:"edges"`
}

// SeedExamples inserts the shipped example pipelines when the store is
// empty, and returns how many were written. A non-empty store is left
// untouched.
func SeedExamples(ctx context.Context, store PipelineStore) (int, error) {
	existing, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	examples := ExamplePipelines()
	for _, rec := range examples {
		if err := store.Save(ctx, rec); err != nil {
			return 0, fmt.Errorf("seed %s: %w", rec.ID, err)
		}
	}
	return len(examples), nil
}

// ExamplePipelines returns the shipped example configurations, one per
// workflow pattern: prompt chaining, routing, parallelization,
// orchestrator-worker, and evaluator-optimizer.
func ExamplePipelines() []PipelineRecord {
	return []PipelineRecord{
		exampleRecord("blog-post-writer", "Blog Post Writer",
			"Sequential content creation: outline, draft, then polish. Demonstrates prompt chaining for iterative refinement.",
			[]NodeConfig{
				promptNode("llm1", NodeLLM, "Create a structured outline with an engaging intro, 3 main points with supporting details, and a compelling conclusion."),
				promptNode("gate1", NodeGate, ""),
				promptNode("llm2", NodeLLM, "Expand the outline into a full draft. Write engaging prose, add examples, and ensure smooth transitions between sections."),
				promptNode("llm3", NodeLLM, "Polish the draft: improve flow, strengthen the opening hook, add a call-to-action, and ensure consistent tone throughout."),
			},
			[]EdgeConfig{
				{From: Single("input"), To: Single("llm1"), Type: EdgeDirect},
				{From: Single("llm1"), To: Single("gate1"), Type: EdgeDirect},
				{From: Single("gate1"), To: Single("llm2"), Type: EdgeDirect},
				{From: Single("llm2"), To: Single("llm3"), Type: EdgeDirect},
				{From: Single("llm3"), To: Single("output"), Type: EdgeDirect},
			}),

		exampleRecord("customer-support", "Customer Support Bot",
			"Routes queries to specialized handlers. Demonstrates routing for domain-specific expertise.",
			[]NodeConfig{
				promptNode("router", NodeRouter, ""),
				promptNode("technical_llm", NodeLLM, "You are a technical support specialist. Diagnose issues systematically, provide step-by-step troubleshooting, and escalate complex problems with detailed notes."),
				promptNode("billing_llm", NodeLLM, "You are a billing specialist. Handle payment inquiries, explain charges clearly, process refund requests, and resolve subscription issues professionally."),
				promptNode("general_llm", NodeLLM, "You are a general support agent. Answer FAQs warmly, guide users to resources, and identify when specialized help is needed."),
			},
			[]EdgeConfig{
				{From: Single("input"), To: Single("router"), Type: EdgeDirect},
				{From: Single("router"), To: Multi("technical_llm", "billing_llm", "general_llm"), Type: EdgeConditional},
				{From: Multi("technical_llm", "billing_llm", "general_llm"), To: Single("output"), Type: EdgeDirect},
			}),

		exampleRecord("document-reviewer", "Document Reviewer",
			"Parallel analysis of grammar, style, and facts. Demonstrates parallelization for comprehensive coverage.",
			[]NodeConfig{
				promptNode("coordinator", NodeCoordinator, "Break the document into logical sections for parallel review."),
				promptNode("grammar_llm", NodeLLM, "Review for grammar, spelling, and punctuation. List each issue with its location and suggested correction."),
				promptNode("style_llm", NodeLLM, "Evaluate writing style: tone consistency, clarity, readability, and engagement. Suggest specific improvements."),
				promptNode("facts_llm", NodeLLM, "Verify factual claims and check for logical inconsistencies. Flag any statements that need citations or clarification."),
				promptNode("aggregator", NodeAggregator, "Combine all reviews into a prioritized feedback report. Group by severity: critical, important, minor suggestions."),
			},
			[]EdgeConfig{
				{From: Single("input"), To: Single("coordinator"), Type: EdgeDirect},
				{From: Single("coordinator"), To: Multi("grammar_llm", "style_llm", "facts_llm"), Type: EdgeParallel},
				{From: Multi("grammar_llm", "style_llm", "facts_llm"), To: Single("aggregator"), Type: EdgeDirect},
				{From: Single("aggregator"), To: Single("output"), Type: EdgeDirect},
			}),

		exampleRecord("research-assistant", "Research Assistant",
			"Dynamic task decomposition for complex research. Demonstrates orchestrator-worker for adaptive workflows.",
			[]NodeConfig{
				promptNode("orchestrator", NodeOrchestrator, "Analyze the research question. Identify key aspects to investigate. Dispatch workers for: foundational context, current data/trends, and comparative analysis."),
				promptNode("context_worker", NodeWorker, "Research the historical background and foundational concepts. Provide context that frames the current state of knowledge."),
				promptNode("data_worker", NodeWorker, "Find current statistics, recent studies, and emerging trends. Focus on data from the last 2-3 years."),
				promptNode("synthesizer", NodeSynthesizer, "Synthesize all findings into a coherent research summary. Highlight key insights, note conflicting information, and suggest areas for further investigation."),
			},
			[]EdgeConfig{
				{From: Single("input"), To: Single("orchestrator"), Type: EdgeDirect},
				{From: Single("orchestrator"), To: Multi("context_worker", "data_worker"), Type: EdgeDynamic},
				{From: Multi("context_worker", "data_worker"), To: Single("synthesizer"), Type: EdgeDirect},
				{From: Single("synthesizer"), To: Single("output"), Type: EdgeDirect},
			}),

		exampleRecord("code-generator", "Code Generator",
			"Generate code with self-critique loop. Demonstrates evaluator-optimizer for quality assurance.",
			[]NodeConfig{
				promptNode("generator", NodeLLM, "Write clean, well-documented code for the request. Include error handling, input validation, and clear comments. Follow best practices for the language."),
				promptNode("evaluator", NodeEvaluator, "Review the generated code for: correctness, edge cases, security vulnerabilities, performance, and readability. If issues found, provide specific feedback. If code meets quality standards, approve for output."),
			},
			[]EdgeConfig{
				{From: Single("input"), To: Single("generator"), Type: EdgeDirect},
				{From: Single("generator"), To: Single("evaluator"), Type: EdgeDirect},
				{From: Single("evaluator"), To: Single("generator"), Type: EdgeConditional},
				{From: Single("evaluator"), To: Single("output"), Type: EdgeDirect},
			}),
	}
}

func exampleRecord(id, name, description string, nodes []NodeConfig, edges []EdgeConfig) PipelineRecord {
	doc := storedConfig{
		Nodes: make([]storedNode, 0, len(nodes)),
		Edges: make([]storedEdge, 0, len(edges)),
	}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, storedNode{
			ID:       n.ID,
			NodeType: string(n.Type),
			Model:    n.Model,
			Prompt:   n.Prompt,
			Tools:    n.Tools,
		})
	}
	for _, e := range edges {
		se := storedEdge{From: e.From, To: e.To}
		if e.Type != EdgeDirect {
			se.EdgeType = string(e.Type)
		}
		doc.Edges = append(doc.Edges, se)
	}

	config, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal example %s: %v", id, err))
	}
	return PipelineRecord{
		ID:          id,
		Name:        name,
		Description: description,
		Config:      config,
	}
}

func promptNode(id string, typ NodeType, prompt string) NodeConfig {
	n := NodeConfig{ID: id, Type: typ}
	if prompt != "" {
		n.Prompt = &prompt
	}
	return n
}
