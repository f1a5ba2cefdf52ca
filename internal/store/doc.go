// Package store provides SQLite-backed persistence for analysis runs and
// instance checkpoints.
//
// # Tables
//
//   - analysis_runs: one row per check, with severity counts
//   - run_machines: the machines a run covered, with their content hashes
//   - diagnostics: the findings of a run, in report order
//   - checkpoints: the persisted program counter of an instance
//
// All ordering uses seq INTEGER (logical), never timestamps, and every
// list query orders by seq ASC so results are identical across runs.
//
// A checkpoint carries the machine hash it was taken against. Callers
// compare it with the current Program's hash before restoring a counter.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
