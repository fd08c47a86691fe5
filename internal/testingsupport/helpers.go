// Package testingsupport provides fixture and seeding helpers for
// tests that exercise the Snapshot Store and the analysis pipeline
// together, so package tests don't each reinvent an in-memory store
// and a handful of Function Records.
package testingsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/storage"
)

// SetupTestStore creates a Snapshot Store backed by a temporary
// directory. The store is closed automatically when the test finishes.
func SetupTestStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

// FunctionFixture builds a minimal, named Function Record suitable for
// seeding a snapshot. Callers mutate the returned Record further (e.g.
// to set Exported or Metrics) before handing it to SeedSnapshot.
func FunctionFixture(physicalID, name, filePath string, startLine, endLine int) model.Record {
	return model.Record{
		PhysicalID:  physicalID,
		SemanticID:  "sem:" + physicalID,
		ContentID:   "content:" + physicalID,
		Name:        name,
		DisplayName: name,
		FilePath:    filePath,
		StartLine:   startLine,
		EndLine:     endLine,
		Kind:        model.KindDeclaration,
	}
}

// SeedSnapshot saves functions (and, optionally, files) as a new
// snapshot and fails the test immediately if the save errors.
func SeedSnapshot(t *testing.T, store *storage.Store, functions []model.Record, files []model.SourceFile, opts storage.SnapshotOptions) string {
	t.Helper()

	id, err := store.SaveSnapshot(context.Background(), functions, files, opts)
	require.NoError(t, err)

	return id
}

// SeedCallEdge builds a minimal direct Call Edge between two physical
// ids, for tests that only care about edge presence, not resolver
// confidence or call-type classification.
func SeedCallEdge(id, callerPhysicalID, calleePhysicalID string) model.CallEdge {
	return model.CallEdge{
		ID:               id,
		CallerPhysicalID: callerPhysicalID,
		CalleePhysicalID: calleePhysicalID,
		CallType:         model.CallDirect,
		Confidence:       1.0,
	}
}
