// Package lineage implements the Lineage Detector: given a Diff, it
// proposes rename, signature-change, inline, and split relations
// between disappeared and appeared functions using text-similarity
// signals and a change-significance scorer.
package lineage

import (
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/funcqc/funcqc/pkg/diff"
	"github.com/funcqc/funcqc/pkg/model"
)

// Config tunes the thresholds the detector applies.
type Config struct {
	// MinSimilarity is the [0,1] similarity a removed/target pair must
	// clear to be considered a rename/signature-change/inline candidate.
	MinSimilarity float64
	// MinSignificanceScore is the [0,100] Change-Significance score a
	// modified pair must clear to become a signature-change candidate.
	MinSignificanceScore float64
	// EnableSplitDetection gates the split-candidate path.
	EnableSplitDetection bool
}

// DefaultConfig matches the thresholds exercised by this repo's tests
// and CLI defaults.
func DefaultConfig() Config {
	return Config{MinSimilarity: 0.6, MinSignificanceScore: 40, EnableSplitDetection: true}
}

// Candidate is one proposed historical relation, prior to persistence.
type Candidate struct {
	FromPhysicalIDs []string
	ToPhysicalIDs   []string
	Kind            model.LineageKind
	Confidence      float64
	Note            string
}

// targetBucket tags a comparison target with the Diff bucket it came
// from, since kind inference for inline candidates depends on it.
type targetBucket struct {
	record model.Record
	origin string // "added", "modified", "unchanged"
}

// Detect consumes a Diff and returns a ranked, deduplicated list of
// Lineage candidates.
func Detect(d *diff.Diff, cfg Config) []Candidate {
	targets := collectTargets(d)

	var candidates []Candidate
	candidates = append(candidates, similarityCandidates(d.Removed, targets, cfg)...)
	candidates = append(candidates, significanceCandidates(d.Modified, cfg)...)

	return dedupeAndRank(candidates)
}

func collectTargets(d *diff.Diff) []targetBucket {
	targets := make([]targetBucket, 0, len(d.Added)+len(d.Modified)+len(d.Unchanged))
	for _, r := range d.Added {
		targets = append(targets, targetBucket{record: r, origin: "added"})
	}
	for _, pair := range d.Modified {
		targets = append(targets, targetBucket{record: pair.To, origin: "modified"})
	}
	for _, r := range d.Unchanged {
		targets = append(targets, targetBucket{record: r, origin: "unchanged"})
	}
	return targets
}

// similarityCandidates implements the "every removed record is matched
// against every added/modified/unchanged record" source, plus split
// detection when a removed record correlates strongly with two or
// more targets.
func similarityCandidates(removed []model.Record, targets []targetBucket, cfg Config) []Candidate {
	var out []Candidate

	for _, from := range removed {
		type hit struct {
			target     targetBucket
			similarity float64
		}
		var hits []hit
		for _, t := range targets {
			sim := similarity(from, t.record)
			if sim >= cfg.MinSimilarity {
				hits = append(hits, hit{target: t, similarity: sim})
			}
		}
		if len(hits) == 0 {
			continue
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].similarity > hits[j].similarity })

		if cfg.EnableSplitDetection && len(hits) >= 2 {
			toIDs := make([]string, len(hits))
			sum := 0.0
			for i, h := range hits {
				toIDs[i] = h.target.record.PhysicalID
				sum += h.similarity
			}
			out = append(out, Candidate{
				FromPhysicalIDs: []string{from.PhysicalID},
				ToPhysicalIDs:   toIDs,
				Kind:            model.LineageSplit,
				Confidence:      clamp01(sum / float64(len(hits))),
				Note:            "split across multiple correlated targets",
			})
			continue
		}

		best := hits[0]
		out = append(out, Candidate{
			FromPhysicalIDs: []string{from.PhysicalID},
			ToPhysicalIDs:   []string{best.target.record.PhysicalID},
			Kind:            inferKind(from, best.target),
			Confidence:      clamp01(best.similarity),
			Note:            "matched by similarity",
		})
	}

	return out
}

// inferKind applies the single-target kind-inference rule. A target
// drawn from the unchanged bucket means the removed function's logic
// was folded into an existing, otherwise-untouched function: inline.
// Otherwise a signature difference wins over a bare rename. Each
// signature is compared with its own function name removed, so a
// rename alone does not count as a signature difference.
func inferKind(from model.Record, to targetBucket) model.LineageKind {
	if to.origin == "unchanged" {
		return model.LineageInline
	}
	if strings.Replace(from.Signature, from.Name, "", 1) != strings.Replace(to.record.Signature, to.record.Name, "", 1) {
		return model.LineageSignatureChange
	}
	return model.LineageRename
}

// significanceCandidates implements the Change-Significance scorer
// over every modified pair.
func significanceCandidates(modified []diff.ModifiedPair, cfg Config) []Candidate {
	var out []Candidate
	for _, pair := range modified {
		score := significanceScore(pair)
		if score < cfg.MinSignificanceScore {
			continue
		}
		out = append(out, Candidate{
			FromPhysicalIDs: []string{pair.From.PhysicalID},
			ToPhysicalIDs:   []string{pair.To.PhysicalID},
			Kind:            model.LineageSignatureChange,
			Confidence:      clamp01(score / 100),
			Note:            "modified pair exceeded change-significance threshold",
		})
	}
	return out
}

// significanceScore weighs signature change, parameter-count change,
// CC-delta magnitude, and rename likelihood into a 0-100 score.
func significanceScore(pair diff.ModifiedPair) float64 {
	score := 0.0
	for _, c := range pair.Changes {
		switch c.Field {
		case "signature":
			score += 40
		case "parameterCount":
			score += 25
		case "returnType":
			score += 10
		case "cyclomaticComplexity":
			switch c.Impact {
			case diff.ImpactHigh:
				score += 20
			case diff.ImpactMedium:
				score += 10
			default:
				score += 3
			}
		}
	}
	if pair.From.Name != pair.To.Name {
		score += 15
	}
	if score > 100 {
		score = 100
	}
	return score
}

// similarity combines signature-text and body-text similarity into a
// single [0,1] score, weighted toward the body since two functions
// with unrelated signatures but near-identical bodies are still a
// strong lineage signal (inline/split candidates).
func similarity(a, b model.Record) float64 {
	sigSim := textSimilarity(a.Signature, b.Signature)
	if skipBodyCompare(a.SourceCode, b.SourceCode) {
		return 0.35 * sigSim
	}
	return 0.35*sigSim + 0.65*textSimilarity(a.SourceCode, b.SourceCode)
}

func textSimilarity(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" && b == "" {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	return clamp01(1 - float64(distance)/float64(maxLen))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dedupeAndRank keys candidates by (fromPhysicalId, sorted toPhysicalIds),
// keeps the higher-confidence candidate on collision, and sorts the
// result by descending confidence.
func dedupeAndRank(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		key := dedupeKey(c)
		existing, ok := best[key]
		if !ok || c.Confidence > existing.Confidence {
			best[key] = c
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return dedupeKey(out[i]) < dedupeKey(out[j])
	})
	return out
}

func dedupeKey(c Candidate) string {
	from := append([]string{}, c.FromPhysicalIDs...)
	to := append([]string{}, c.ToPhysicalIDs...)
	sort.Strings(from)
	sort.Strings(to)
	return strings.Join(from, ",") + "|" + strings.Join(to, ",")
}

// ToLineages converts candidates into draft Lineage records ready for
// Store.SaveLineages, stamping the originating Git commit.
func ToLineages(candidates []Candidate, gitCommit string) []model.Lineage {
	out := make([]model.Lineage, len(candidates))
	for i, c := range candidates {
		out[i] = model.Lineage{
			FromPhysicalIDs: c.FromPhysicalIDs,
			ToPhysicalIDs:   c.ToPhysicalIDs,
			Kind:            c.Kind,
			Status:          model.LineageDraft,
			Confidence:      c.Confidence,
			Note:            c.Note,
			GitCommit:       gitCommit,
		}
	}
	return out
}
