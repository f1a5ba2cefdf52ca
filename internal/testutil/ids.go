package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator issues predictable IDs: "<prefix>-0001", "<prefix>-0002", ...
//
// Used in place of the UUIDv7 generator so golden traces and stored
// checkpoints are byte-identical across runs. Safe for concurrent use.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix becomes "test".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next ID in sequence.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
