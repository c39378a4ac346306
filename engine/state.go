package engine

import "sync"

// execState is the traversal state of one pipeline run: node outputs keyed
// by node ID, the set of nodes that already ran, and a step counter used
// for log ordering. The context map is seeded with the user message under
// the reserved key "input".
type execState struct {
	mu       sync.RWMutex
	context  map[string]string
	executed map[string]bool
	step     int
}

func newExecState(input string) *execState {
	return &execState{
		context:  map[string]string{"input": input},
		executed: make(map[string]bool),
	}
}

// value returns the stored output of a node.
func (s *execState) value(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.context[id]
	return v, ok
}

// setValue stores a node's output.
func (s *execState) setValue(id, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[id] = output
}

// done reports whether a node already ran.
func (s *execState) done(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executed[id]
}

// anyDone reports whether any of the given nodes already ran.
func (s *execState) anyDone(ids []string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if s.executed[id] {
			return true
		}
	}
	return false
}

// markDone records a node as executed.
func (s *execState) markDone(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed[id] = true
}

// nextStep increments and returns the step counter.
func (s *execState) nextStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step++
	return s.step
}

// steps returns the number of node executions so far.
func (s *execState) steps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}
