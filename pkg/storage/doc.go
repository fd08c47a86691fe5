// Package storage implements the Snapshot Store: transactional, phased
// persistence of analysis snapshots over an embedded BadgerDB instance.
//
// A snapshot is written in one or two phases — functions/parameters/
// metrics/source files first (analysis level "basic"), call edges
// second (analysis level "call-graph") — and each phase commits as a
// single BadgerDB transaction so a failure partway through a phase
// leaves no partial rows behind. Snapshots, once written, are never
// mutated in place; only their analysis level and rolled-up metadata
// advance.
//
// # Key layout
//
//	snap/<snapshotID>/header        -> model.Snapshot (JSON)
//	snap/<snapshotID>/fn/<physID>   -> model.Record (JSON)
//	snap/<snapshotID>/edge/<edgeID> -> model.CallEdge (JSON)
//	snap/<snapshotID>/file/<fileID> -> model.SourceFile (JSON)
//	lineage/<lineageID>             -> model.Lineage (JSON)
//
// Queries that need more than a point lookup (queryFunctions,
// getSnapshots) iterate the relevant key prefix and filter/sort the
// decoded rows in memory, the same pattern BadgerDB-backed listing
// code in the retrieved corpus uses for prefix-scoped metadata scans.
package storage
