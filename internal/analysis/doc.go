// Package analysis implements the static race-liability check over actor
// machines.
//
// For every machine it locates the start states (targets of Exec and Wait),
// enumerates the selection paths from each start state to a firing Exec,
// and compares every pair of paths from the same start state. A pair whose
// discriminating condition is a port condition and whose fired transitions
// differ is timing-dependent: which transition fires depends on when tokens
// arrive on an external channel.
//
// Findings are Diagnostics delivered to a Reporter. Races are advisory and
// never returned as errors; malformed controllers are reported as fatal and
// the offending state or pair is skipped.
//
// Every call takes an explicit *Context carrying the machine, the reporter
// and the logger. The machine is never mutated.
package analysis
