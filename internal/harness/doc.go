// Package harness runs step scenarios against synthesized schedulers.
//
// A scenario names a directory of CUE machine descriptions and one actor,
// then drives a real scheduler.Instance through a list of steps. Before
// each step the scenario sets token counts and predicate values; after it,
// the observed outcome is compared with the step's expect clause.
//
// # Scenario Format
//
//	name: filter-basic
//	description: "One token passes through the filter"
//	specs: machines          # CUE directory, relative to the scenario file
//	actor: Filter
//	instance: filter-1       # optional; needed for checkpoint restore
//	max_ops: 100             # optional op budget per step
//	steps:
//	  - tokens: {data: 1, result: 1}
//	    predicates: {positive: true}
//	    expect:
//	      outcome: progress
//	      fired: [pass]
//	      pc: 0
//	  - expect:
//	      outcome: blocked
//	      blocked:
//	        - {port: data, direction: input, deficit: 1}
//
// Token and predicate values persist across steps; a step only overwrites
// the entries it names. Firing a transition applies its rates: consumed
// tokens leave the input port and produced tokens use up free output slots.
// A port's count is also what the scheduler reads to compute deficits.
//
// The pseudo-outcome "error" expects Step to fail; expect.error is then
// matched as a substring of the error message.
//
// # Deterministic Testing
//
// Firings are stamped by testutil.DeterministicClock, so a scenario
// produces the same trace on every run. Tests pass a fixed ID generator
// for the same reason; RunWithGolden compares the trace with
// testdata/golden/<name>.golden.
//
// # Checkpoints
//
// With WithStore, a scenario that names its instance resumes from the
// instance's stored checkpoint (if the machine hash still matches) and
// saves its final program counter when done.
package harness
