package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic identifiers, one sequence per prefix.
type IDGenerator struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewIDGenerator constructs an empty generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counters: make(map[string]uint64)}
}

// Next returns the next identifier for prefix, e.g. "evt-001".
func (g *IDGenerator) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s-%03d", prefix, g.counters[prefix])
}

// ForPrefix binds Next to prefix. Its signature matches the identifier
// source expected by application.CollectionsOptions.
func (g *IDGenerator) ForPrefix(prefix string) func() string {
	return func() string { return g.Next(prefix) }
}

// Reset restarts every sequence.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counters = make(map[string]uint64)
	g.mu.Unlock()
}
