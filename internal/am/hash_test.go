package am

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineHash_Deterministic(t *testing.T) {
	h1, err := MachineHash(filterMachine())
	require.NoError(t, err)
	h2, err := MachineHash(filterMachine())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestMachineHash_SensitiveToControlFlow(t *testing.T) {
	a := filterMachine()
	b := filterMachine()
	b.States[4] = State{Index: 4, Instructions: []Instruction{Wait{Next: 4}}}

	assert.NotEqual(t, MustMachineHash(a), MustMachineHash(b))
}

func TestMachineHash_IgnoresMapOrder(t *testing.T) {
	a := filterMachine()
	b := filterMachine()
	b.Transitions[0].Produces = map[string]int{"out": 1}
	b.Transitions[0].Consumes = map[string]int{"in": 1}

	assert.Equal(t, MustMachineHash(a), MustMachineHash(b))
}

func TestMarshalCanonical_SortedKeysNoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"b": 1, "a": "<x&y>", "c": []any{true, "q\""}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x&y>","b":1,"c":[true,"q\""]}`, string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	out, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalCanonical_RejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)

	_, err = MarshalCanonical(nil)
	require.Error(t, err)
}

func TestMarshalCanonical_ControlCharacters(t *testing.T) {
	out, err := MarshalCanonical("a\tb\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\tb\u0001"`, string(out))
}
