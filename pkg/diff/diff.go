// Package diff implements the Diff Engine: it pairs the Function
// Records of two snapshots by identity tier and emits a structured
// bundle of added, removed, modified, and unchanged records plus
// roll-up statistics.
package diff

import (
	"sort"

	"github.com/funcqc/funcqc/pkg/model"
)

// Impact classifies the significance of one field-level Change.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Change is one field-level difference between the from and to side of
// a Modified pair.
type Change struct {
	Field    string
	OldValue any
	NewValue any
	Impact   Impact
}

// ModifiedPair is one Function Record paired across snapshots by equal
// semantic id but differing content id.
type ModifiedPair struct {
	From    model.Record
	To      model.Record
	Changes []Change
}

// Statistics is the roll-up over a Diff's four buckets.
type Statistics struct {
	AddedCount      int
	RemovedCount    int
	ModifiedCount   int
	UnchangedCount  int
	ComplexityDelta int // sum of (to.CC - from.CC) over Modified
	LOCDelta        int // sum of (to.LOC - from.LOC) over Modified
}

// Diff is the output of comparing two snapshots' Function Records.
type Diff struct {
	FromSnapshotID string
	ToSnapshotID   string
	Added          []model.Record
	Removed        []model.Record
	Modified       []ModifiedPair
	Unchanged      []model.Record
	Statistics     Statistics
}

// Compute pairs fromFunctions and toFunctions by semantic id and
// classifies each pair as unchanged (equal content id), modified
// (differing content id, with per-field Change entries), or — for
// unpaired records — added/removed. Identical snapshot ids short-
// circuit: no pairing is attempted, every from-side record is reported
// unchanged, matching diff(S, S)'s idempotence requirement.
func Compute(fromSnapshotID, toSnapshotID string, fromFunctions, toFunctions []model.Record) *Diff {
	d := &Diff{FromSnapshotID: fromSnapshotID, ToSnapshotID: toSnapshotID}

	if fromSnapshotID == toSnapshotID {
		d.Unchanged = append([]model.Record{}, fromFunctions...)
		sortRecords(d.Unchanged)
		d.Statistics.UnchangedCount = len(d.Unchanged)
		return d
	}

	fromBySemantic := indexBySemanticID(fromFunctions)
	toBySemantic := indexBySemanticID(toFunctions)

	for semID, fromRec := range fromBySemantic {
		toRec, ok := toBySemantic[semID]
		if !ok {
			d.Removed = append(d.Removed, fromRec)
			continue
		}
		if fromRec.ContentID == toRec.ContentID {
			d.Unchanged = append(d.Unchanged, toRec)
			continue
		}
		pair := ModifiedPair{From: fromRec, To: toRec, Changes: diffFields(&fromRec, &toRec)}
		d.Modified = append(d.Modified, pair)
		d.Statistics.ComplexityDelta += toRec.Metrics.CyclomaticComplexity - fromRec.Metrics.CyclomaticComplexity
		d.Statistics.LOCDelta += toRec.Metrics.LinesOfCode - fromRec.Metrics.LinesOfCode
	}
	for semID, toRec := range toBySemantic {
		if _, ok := fromBySemantic[semID]; !ok {
			d.Added = append(d.Added, toRec)
		}
	}

	sortRecords(d.Added)
	sortRecords(d.Removed)
	sortRecords(d.Unchanged)
	sort.Slice(d.Modified, func(i, j int) bool {
		return recordLess(&d.Modified[i].To, &d.Modified[j].To)
	})

	d.Statistics.AddedCount = len(d.Added)
	d.Statistics.RemovedCount = len(d.Removed)
	d.Statistics.ModifiedCount = len(d.Modified)
	d.Statistics.UnchangedCount = len(d.Unchanged)
	return d
}

func indexBySemanticID(records []model.Record) map[string]model.Record {
	idx := make(map[string]model.Record, len(records))
	for _, r := range records {
		idx[r.SemanticID] = r
	}
	return idx
}

// diffFields computes the per-field Change entries between a paired
// from/to record. startLine/endLine/startColumn/endColumn are
// location-only and never surface as changes.
func diffFields(from, to *model.Record) []Change {
	var changes []Change

	if from.Signature != to.Signature {
		changes = append(changes, Change{Field: "signature", OldValue: from.Signature, NewValue: to.Signature, Impact: ImpactHigh})
	}
	if from.ReturnType != to.ReturnType {
		changes = append(changes, Change{Field: "returnType", OldValue: from.ReturnType, NewValue: to.ReturnType, Impact: ImpactMedium})
	}
	if len(from.Parameters) != len(to.Parameters) {
		changes = append(changes, Change{Field: "parameterCount", OldValue: len(from.Parameters), NewValue: len(to.Parameters), Impact: ImpactMedium})
	}
	if from.AccessModifier != to.AccessModifier {
		changes = append(changes, Change{Field: "accessModifier", OldValue: string(from.AccessModifier), NewValue: string(to.AccessModifier), Impact: ImpactMedium})
	}
	if from.Exported != to.Exported {
		changes = append(changes, Change{Field: "exported", OldValue: from.Exported, NewValue: to.Exported, Impact: ImpactLow})
	}
	if from.Async != to.Async {
		changes = append(changes, Change{Field: "async", OldValue: from.Async, NewValue: to.Async, Impact: ImpactLow})
	}
	if from.Generator != to.Generator {
		changes = append(changes, Change{Field: "generator", OldValue: from.Generator, NewValue: to.Generator, Impact: ImpactLow})
	}
	if from.JSDoc != to.JSDoc {
		changes = append(changes, Change{Field: "jsDoc", OldValue: from.JSDoc, NewValue: to.JSDoc, Impact: ImpactLow})
	}
	if cc := to.Metrics.CyclomaticComplexity - from.Metrics.CyclomaticComplexity; cc != 0 {
		changes = append(changes, Change{
			Field: "cyclomaticComplexity", OldValue: from.Metrics.CyclomaticComplexity, NewValue: to.Metrics.CyclomaticComplexity,
			Impact: complexityImpact(cc),
		})
	}
	if from.ASTHash != to.ASTHash {
		changes = append(changes, Change{Field: "astHash", OldValue: from.ASTHash, NewValue: to.ASTHash, Impact: ImpactLow})
	}

	return changes
}

func complexityImpact(delta int) Impact {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta >= 5:
		return ImpactHigh
	case delta >= 2:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

func sortRecords(records []model.Record) {
	sort.Slice(records, func(i, j int) bool {
		return recordLess(&records[i], &records[j])
	})
}

func recordLess(a, b *model.Record) bool {
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	return a.StartLine < b.StartLine
}
