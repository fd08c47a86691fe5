package lineage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/diff"
	"github.com/funcqc/funcqc/pkg/model"
)

func rec(physicalID, name, signature, sourceCode string) model.Record {
	return model.Record{
		PhysicalID: physicalID,
		Name:       name,
		Signature:  signature,
		SourceCode: sourceCode,
	}
}

func TestDetect_RenameWithIdenticalBody(t *testing.T) {
	body := "{ return x > 0; }"
	d := &diff.Diff{
		Removed: []model.Record{rec("p1", "validate", "function validate(x: number): boolean", body)},
		Added:   []model.Record{rec("p2", "isPositive", "function isPositive(x: number): boolean", body)},
	}

	candidates := Detect(d, DefaultConfig())

	require.Len(t, candidates, 1)
	c := candidates[0]
	require.Equal(t, model.LineageRename, c.Kind)
	require.Equal(t, []string{"p1"}, c.FromPhysicalIDs)
	require.Equal(t, []string{"p2"}, c.ToPhysicalIDs)
	require.GreaterOrEqual(t, c.Confidence, 0.9)
}

func TestDetect_SignatureChangeFromModifiedPair(t *testing.T) {
	from := rec("p1", "foo", "function foo(a: number)", "{ return a; }")
	to := rec("p1", "foo", "function foo(a: number, b: number)", "{ return a + b; }")
	d := &diff.Diff{
		Modified: []diff.ModifiedPair{
			{
				From: from, To: to,
				Changes: []diff.Change{
					{Field: "signature", OldValue: from.Signature, NewValue: to.Signature, Impact: diff.ImpactHigh},
					{Field: "parameterCount", OldValue: 1, NewValue: 2, Impact: diff.ImpactMedium},
				},
			},
		},
	}

	candidates := Detect(d, DefaultConfig())

	require.Len(t, candidates, 1)
	require.Equal(t, model.LineageSignatureChange, candidates[0].Kind)
	require.Equal(t, []string{"p1"}, candidates[0].FromPhysicalIDs)
}

func TestDetect_SplitAcrossMultipleTargets(t *testing.T) {
	original := rec("p1", "process", "function process(input: string): void", "parse(input); validate(input); emit(input);")
	parse := rec("p2", "parse", "function parse(input: string): void", "parse(input);")
	validate := rec("p3", "validate", "function validate(input: string): void", "validate(input);")

	d := &diff.Diff{
		Removed: []model.Record{original},
		Added:   []model.Record{parse, validate},
	}

	cfg := Config{MinSimilarity: 0.2, MinSignificanceScore: 40, EnableSplitDetection: true}
	candidates := Detect(d, cfg)

	require.Len(t, candidates, 1)
	c := candidates[0]
	require.Equal(t, model.LineageSplit, c.Kind)
	require.Len(t, c.ToPhysicalIDs, 2)
}

func TestDetect_InlineWhenTargetIsUnchanged(t *testing.T) {
	body := "combined logic here"
	d := &diff.Diff{
		Removed:   []model.Record{rec("p1", "helper", "function helper(): void", body)},
		Unchanged: []model.Record{rec("p2", "owner", "function owner(): void", body)},
	}

	candidates := Detect(d, DefaultConfig())

	require.Len(t, candidates, 1)
	require.Equal(t, model.LineageInline, candidates[0].Kind)
}

func TestDetect_NoCandidatesBelowThreshold(t *testing.T) {
	d := &diff.Diff{
		Removed: []model.Record{rec("p1", "alpha", "function alpha(): void", "totally unrelated logic")},
		Added:   []model.Record{rec("p2", "beta", "function beta(x: number, y: number, z: number): number", "completely different computation entirely")},
	}

	candidates := Detect(d, DefaultConfig())
	require.Empty(t, candidates)
}

func TestDedupeAndRank_KeepsHigherConfidenceOnCollision(t *testing.T) {
	low := Candidate{FromPhysicalIDs: []string{"p1"}, ToPhysicalIDs: []string{"p2"}, Kind: model.LineageRename, Confidence: 0.5}
	high := Candidate{FromPhysicalIDs: []string{"p1"}, ToPhysicalIDs: []string{"p2"}, Kind: model.LineageRename, Confidence: 0.9}

	out := dedupeAndRank([]Candidate{low, high})

	require.Len(t, out, 1)
	require.Equal(t, 0.9, out[0].Confidence)
}

func TestToLineages_StampsDraftStatusAndCommit(t *testing.T) {
	candidates := []Candidate{{FromPhysicalIDs: []string{"p1"}, ToPhysicalIDs: []string{"p2"}, Kind: model.LineageRename, Confidence: 0.95}}

	lineages := ToLineages(candidates, "abc1234")

	require.Len(t, lineages, 1)
	require.Equal(t, model.LineageDraft, lineages[0].Status)
	require.Equal(t, "abc1234", lineages[0].GitCommit)
}
