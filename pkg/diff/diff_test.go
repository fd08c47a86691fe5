package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/model"
)

func rec(semanticID, contentID, name, filePath string, startLine int) model.Record {
	return model.Record{
		PhysicalID: semanticID + "@" + contentID,
		SemanticID: semanticID,
		ContentID:  contentID,
		Name:       name,
		FilePath:   filePath,
		StartLine:  startLine,
		Signature:  name + "()",
		Metrics:    model.QualityMetrics{CyclomaticComplexity: 1, LinesOfCode: 5},
	}
}

func TestCompute_IdenticalSnapshotIsIdempotent(t *testing.T) {
	funcs := []model.Record{rec("sem-a", "cnt-1", "validate", "a.ts", 1)}

	d := Compute("snap-1", "snap-1", funcs, funcs)

	require.Empty(t, d.Added)
	require.Empty(t, d.Removed)
	require.Empty(t, d.Modified)
	require.Len(t, d.Unchanged, 1)
	require.Equal(t, 1, d.Statistics.UnchangedCount)
}

func TestCompute_UnchangedWhenContentIDMatches(t *testing.T) {
	from := []model.Record{rec("sem-a", "cnt-1", "validate", "a.ts", 1)}
	to := []model.Record{rec("sem-a", "cnt-1", "validate", "a.ts", 9)} // line moved, content same

	d := Compute("s1", "s2", from, to)

	require.Len(t, d.Unchanged, 1)
	require.Empty(t, d.Modified)
}

func TestCompute_ModifiedWhenContentIDDiffersButSemanticIDMatches(t *testing.T) {
	from := []model.Record{rec("sem-a", "cnt-1", "validate", "a.ts", 1)}
	toRecord := rec("sem-a", "cnt-2", "validate", "a.ts", 1)
	toRecord.Metrics.CyclomaticComplexity = 6
	toRecord.Metrics.LinesOfCode = 12
	to := []model.Record{toRecord}

	d := Compute("s1", "s2", from, to)

	require.Len(t, d.Modified, 1)
	require.Empty(t, d.Added)
	require.Empty(t, d.Removed)

	pair := d.Modified[0]
	require.Equal(t, "sem-a", pair.From.SemanticID)
	require.Equal(t, "sem-a", pair.To.SemanticID)
	require.NotEqual(t, pair.From.ContentID, pair.To.ContentID)

	var found bool
	for _, c := range pair.Changes {
		if c.Field == "cyclomaticComplexity" {
			found = true
			require.Equal(t, ImpactHigh, c.Impact) // delta of 5
		}
	}
	require.True(t, found, "expected a cyclomaticComplexity change entry")
	require.Equal(t, 5, d.Statistics.ComplexityDelta)
	require.Equal(t, 7, d.Statistics.LOCDelta)
}

func TestCompute_SignatureChangeProducesHighImpactChange(t *testing.T) {
	from := []model.Record{rec("sem-a", "cnt-1", "format", "a.ts", 1)}
	toRecord := rec("sem-a", "cnt-2", "format", "a.ts", 1)
	toRecord.Signature = "format(value: string): string"
	toRecord.ReturnType = "string"
	to := []model.Record{toRecord}

	d := Compute("s1", "s2", from, to)

	require.Len(t, d.Modified, 1)
	changesByField := map[string]Change{}
	for _, c := range d.Modified[0].Changes {
		changesByField[c.Field] = c
	}
	require.Contains(t, changesByField, "signature")
	require.Equal(t, ImpactHigh, changesByField["signature"].Impact)
	require.Contains(t, changesByField, "returnType")
	require.Equal(t, ImpactMedium, changesByField["returnType"].Impact)
}

func TestCompute_RenameAppearsAsRemovedAndAdded(t *testing.T) {
	// Renaming changes the semantic id (the role tag is name-derived), so
	// the pairing algorithm cannot match these by semantic id alone — the
	// old name drops out as removed and the new name surfaces as added.
	from := []model.Record{rec("sem-validate", "cnt-1", "validate", "a.ts", 1)}
	to := []model.Record{rec("sem-isPositive", "cnt-1", "isPositive", "a.ts", 1)}

	d := Compute("s1", "s2", from, to)

	require.Len(t, d.Removed, 1)
	require.Len(t, d.Added, 1)
	require.Empty(t, d.Modified)
	require.Equal(t, "validate", d.Removed[0].Name)
	require.Equal(t, "isPositive", d.Added[0].Name)
}

func TestCompute_LocationOnlyFieldsNeverSurfaceAsChanges(t *testing.T) {
	from := []model.Record{rec("sem-a", "cnt-1", "helper", "a.ts", 1)}
	toRecord := rec("sem-a", "cnt-2", "helper", "a.ts", 42) // line moved a lot
	toRecord.EndLine = 60
	to := []model.Record{toRecord}

	d := Compute("s1", "s2", from, to)

	require.Len(t, d.Modified, 1)
	for _, c := range d.Modified[0].Changes {
		require.NotEqual(t, "startLine", c.Field)
		require.NotEqual(t, "endLine", c.Field)
	}
}

func TestCompute_ResultsAreSortedByFileThenLine(t *testing.T) {
	from := []model.Record{}
	to := []model.Record{
		rec("sem-b", "cnt-1", "second", "b.ts", 1),
		rec("sem-a", "cnt-1", "first", "a.ts", 20),
		rec("sem-c", "cnt-1", "third", "a.ts", 5),
	}

	d := Compute("s1", "s2", from, to)

	require.Len(t, d.Added, 3)
	require.Equal(t, "third", d.Added[0].Name)
	require.Equal(t, "first", d.Added[1].Name)
	require.Equal(t, "second", d.Added[2].Name)
}
