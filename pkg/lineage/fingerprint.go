package lineage

import "github.com/minio/highwayhash"

// shingleSize is the character n-gram length the minhash signature is
// built from.
const shingleSize = 5

// minhashKeys are four distinct fixed 32-byte HighwayHash keys, one
// per minhash signature slot. Only used for bucketing, not
// cryptographic purposes, so fixed keys are fine.
var minhashKeys = [4][32]byte{
	{1}, {2}, {3}, {4},
}

// minhashSignature computes a 4-value minhash signature over s's
// shingleSize-byte shingles using HighwayHash, a fast non-cryptographic
// hash. Used as a cheap pre-filter ahead of the O(removed × added)
// diffmatchpatch similarity sweep: two bodies with no matching buckets
// are assumed dissimilar without ever running the expensive exact
// comparison.
func minhashSignature(s string) [4]uint64 {
	var sig [4]uint64
	for i := range sig {
		sig[i] = ^uint64(0)
	}

	data := []byte(s)
	if len(data) < shingleSize {
		for i := range minhashKeys {
			sig[i] = highwayhash.Sum64(data, minhashKeys[i][:])
		}
		return sig
	}

	for start := 0; start+shingleSize <= len(data); start++ {
		shingle := data[start : start+shingleSize]
		for i := range minhashKeys {
			v := highwayhash.Sum64(shingle, minhashKeys[i][:])
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// estimatedJaccard returns the fraction of matching minhash buckets
// between two signatures: an approximation of shingle-set Jaccard
// similarity, cheap enough to run for every removed/target pair before
// deciding whether the exact text similarity is worth computing.
func estimatedJaccard(a, b [4]uint64) float64 {
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}

// skipBodyCompare reports whether two function bodies can be assumed
// dissimilar without running the exact Levenshtein-based comparison.
// Only applied to bodies long enough that the pre-filter's false-skip
// risk is outweighed by the cost it saves; short bodies always go
// through the exact path.
func skipBodyCompare(a, b string) bool {
	const minBodyLenForPrefilter = 200
	if len(a) < minBodyLenForPrefilter || len(b) < minBodyLenForPrefilter {
		return false
	}
	return estimatedJaccard(minhashSignature(a), minhashSignature(b)) == 0
}
