// Package harness runs review workflow scenarios described in YAML.
//
// A scenario opens a fresh in-memory store, wires the review service with a
// fixed clock and sequential record ids, and drives one form controller per
// (owner, period) through a list of steps: load, set, fill, submit, edit and
// friends. Every step is appended to a trace; assertions then check the
// trace and the final store contents.
//
// Because clock and ids are deterministic, the same scenario produces a
// byte-identical trace on every run, which RunWithGolden compares against a
// golden file:
//
//	go test ./internal/harness -update
//
// regenerates them.
package harness
