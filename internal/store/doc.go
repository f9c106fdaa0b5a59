// Package store provides SQLite-backed durable storage for review records
// and owner profiles.
//
// # Invariants
//
// One record per period:
//   - UNIQUE(owner, cadence, year, period_index) index on reviews
//   - Annual records use period_index = 0
//   - UpsertReview finds then writes inside one transaction
//   - FindReview treats more than one match as a consistency error
//
// Owner scoping:
//   - Every read and write filters on owner
//   - The owner is supplied by the caller's identity, never by payloads
//
// Record identity:
//   - id, owner, cadence, period and created_at never change after insert
//   - responses, digest and completed_at are replaced together
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: upserts are serialized
//
// Timestamps are stored as Unix milliseconds in UTC. Responses are stored
// as canonical JSON (see internal/canonical).
package store
