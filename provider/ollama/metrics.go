package ollama

// Metrics is the runner's timing report from the final frame of a native
// chat stream. Durations are nanoseconds, as reported by Ollama.
type Metrics struct {
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalCount    int   `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalCount          int   `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"`
}

// TotalDurationMs returns the total request duration in milliseconds.
func (m Metrics) TotalDurationMs() int64 { return m.TotalDuration / 1e6 }

// LoadDurationMs returns the model load time in milliseconds.
func (m Metrics) LoadDurationMs() int64 { return m.LoadDuration / 1e6 }

// PromptEvalMs returns the prompt evaluation time in milliseconds.
func (m Metrics) PromptEvalMs() int64 { return m.PromptEvalDuration / 1e6 }

// EvalMs returns the generation time in milliseconds.
func (m Metrics) EvalMs() int64 { return m.EvalDuration / 1e6 }

// TokensPerSec computes generation speed from the eval counters.
func (m Metrics) TokensPerSec() float64 {
	if m.EvalDuration == 0 {
		return 0
	}
	return float64(m.EvalCount) / (float64(m.EvalDuration) / 1e9)
}
