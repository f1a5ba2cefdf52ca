// Package scheduler lowers an actor machine into a resumable dispatch
// routine and runs it one invocation at a time.
//
// Synthesize validates the machine and lowers every state into a flat op.
// An Instance owns one program counter. Each Step jumps to the state named
// by the counter and runs until the automaton suspends:
//
//   - Test calls the bound condition function and branches. The false
//     branch of a port condition records a Blockage describing what must
//     change before the instance can progress.
//   - Exec calls the bound action and continues. Actions run one at a time.
//   - Wait stores its target in the counter and returns. A Wait that
//     targets its own state is Terminal.
//
// Valid counter values are the entry state and the targets of Wait
// instructions (the resume table). Step never blocks; retry timing belongs
// to the caller, as does the single-writer discipline per instance.
package scheduler
