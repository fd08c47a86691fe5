package testingsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/storage"
)

func TestSetupTestStore_IsolatesEachTest(t *testing.T) {
	store1 := SetupTestStore(t)
	SeedSnapshot(t, store1, []model.Record{FunctionFixture("p1", "a", "a.ts", 1, 3)}, nil, storage.SnapshotOptions{})

	store2 := SetupTestStore(t)
	snaps, err := store2.GetSnapshots(context.Background(), storage.ScopeQuery{})
	require.NoError(t, err)
	require.Empty(t, snaps, "a freshly opened store should have no snapshots from another test")
}

func TestSeedSnapshot_PersistsFunctionFixtures(t *testing.T) {
	store := SetupTestStore(t)

	fn := FunctionFixture("p1", "helper", "util.ts", 1, 5)
	fn.Exported = true

	id := SeedSnapshot(t, store, []model.Record{fn}, nil, storage.SnapshotOptions{Label: "v1"})
	require.NotEmpty(t, id)

	records, err := store.QueryFunctions(context.Background(), storage.QueryOptions{SnapshotID: id})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "helper", records[0].Name)
	require.True(t, records[0].Exported)
}

func TestSeedCallEdge_ProducesADirectEdge(t *testing.T) {
	store := SetupTestStore(t)

	caller := FunctionFixture("p1", "caller", "a.ts", 1, 5)
	callee := FunctionFixture("p2", "callee", "a.ts", 7, 9)
	id := SeedSnapshot(t, store, []model.Record{caller, callee}, nil, storage.SnapshotOptions{})

	edge := SeedCallEdge("e1", "p1", "p2")
	require.NoError(t, store.WriteCallEdges(context.Background(), id, []model.CallEdge{edge}))
}
