package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedIDGenerator("inst")

	assert.Equal(t, "inst-0001", gen.Generate())
	assert.Equal(t, "inst-0002", gen.Generate())
}

func TestFixedIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewFixedIDGenerator("")
	assert.Equal(t, "test-0001", gen.Generate())
}

func TestFixedIDGenerator_SameSequenceEachRun(t *testing.T) {
	a := NewFixedIDGenerator("run")
	b := NewFixedIDGenerator("run")
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}
