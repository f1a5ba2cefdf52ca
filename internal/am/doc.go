// Package am provides the actor-machine model consumed by the backend.
//
// This package contains the automaton types and read-only accessors. All
// other internal packages import am; am imports nothing internal.
//
// Key design constraints:
//   - An ActorMachine is immutable once constructed upstream; nothing in the
//     backend mutates it
//   - All graph edges are plain indices (states, conditions, transitions), so
//     the object graph is acyclic even when the control flow cycles
//   - Instruction and Condition are closed sum types (sealed interfaces)
//   - All JSON tags use snake_case
package am
