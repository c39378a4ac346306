package fissio

import "testing"

func TestBuilderBasicChain(t *testing.T) {
	cfg := NewPipeline("triage", "Support triage").
		Description("Route tickets to a specialist").
		NodeWithPrompt("classify", NodeRouter, "Route the ticket").
		NodeWithModel("billing", NodeLLM, "openai-gpt5", "You handle billing").
		NodeWithTools("bugs", NodeWorker, "You investigate bugs", "web_search", "fetch_url").
		Edge("input", "classify").
		Conditional("classify", "billing", "bugs").
		Edge("billing", "output").
		Edge("bugs", "output").
		Build()

	if cfg.ID != "triage" || cfg.Name != "Support triage" {
		t.Errorf("id/name = %q/%q", cfg.ID, cfg.Name)
	}
	if cfg.Description != "Route tickets to a specialist" {
		t.Errorf("description = %q", cfg.Description)
	}
	if len(cfg.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(cfg.Nodes))
	}
	if len(cfg.Edges) != 4 {
		t.Fatalf("len(Edges) = %d, want 4", len(cfg.Edges))
	}

	billing := cfg.Nodes[1]
	if billing.Type != NodeLLM {
		t.Errorf("billing.Type = %q, want llm", billing.Type)
	}
	if billing.Model == nil || *billing.Model != "openai-gpt5" {
		t.Errorf("billing.Model = %v, want openai-gpt5", billing.Model)
	}
	if billing.Prompt == nil || *billing.Prompt != "You handle billing" {
		t.Errorf("billing.Prompt = %v", billing.Prompt)
	}

	bugs := cfg.Nodes[2]
	if len(bugs.Tools) != 2 || bugs.Tools[0] != "web_search" {
		t.Errorf("bugs.Tools = %v, want [web_search fetch_url]", bugs.Tools)
	}

	cond := cfg.Edges[1]
	if cond.Type != EdgeConditional {
		t.Errorf("conditional edge type = %q", cond.Type)
	}
	if !cond.From.IsOnly("classify") {
		t.Errorf("conditional from = %v", cond.From.IDs())
	}
	if got := cond.To.IDs(); len(got) != 2 || got[0] != "billing" || got[1] != "bugs" {
		t.Errorf("conditional to = %v, want [billing bugs]", got)
	}
}

func TestBuilderFanOutFanIn(t *testing.T) {
	cfg := NewPipeline("research", "Research").
		NodeWithPrompt("plan", NodeCoordinator, "Plan the work").
		NodeWithPrompt("web", NodeWorker, "Search the web").
		NodeWithPrompt("docs", NodeWorker, "Read the docs").
		NodeWithPrompt("merge", NodeSynthesizer, "Combine findings").
		Edge("input", "plan").
		FanOut("plan", "web", "docs").
		FanIn([]string{"web", "docs"}, "merge").
		Edge("merge", "output").
		Build()

	fan := cfg.Edges[1]
	if fan.Type != EdgeParallel {
		t.Errorf("fan-out type = %q, want parallel", fan.Type)
	}
	if got := fan.To.IDs(); len(got) != 2 || got[0] != "web" || got[1] != "docs" {
		t.Errorf("fan-out to = %v, want [web docs]", got)
	}

	join := cfg.Edges[2]
	if join.Type != EdgeDirect {
		t.Errorf("fan-in type = %q, want direct", join.Type)
	}
	if got := join.From.IDs(); len(got) != 2 || got[0] != "web" || got[1] != "docs" {
		t.Errorf("fan-in from = %v, want [web docs]", got)
	}
	if !join.To.IsOnly("merge") {
		t.Errorf("fan-in to = %v, want merge", join.To.IDs())
	}
}

func TestBuilderRoundTripsThroughJSON(t *testing.T) {
	built := NewPipeline("p", "P").
		Node("a", NodeLLM).
		FanOut("a", "b", "c").
		Build()

	data, err := built.JSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ParsePipelineConfig(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Nodes) != 1 || parsed.Nodes[0].ID != "a" {
		t.Errorf("nodes = %+v", parsed.Nodes)
	}
	if parsed.Edges[0].Type != EdgeParallel {
		t.Errorf("edge type = %q, want parallel", parsed.Edges[0].Type)
	}
}
