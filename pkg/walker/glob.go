package walker

import "strings"

// matchesGlob reports whether path (a root-relative, '/'-separated
// path) matches an exclude pattern. Patterns come in three shapes:
// a bare literal segment ("node_modules", matched at any depth), a
// "**"-anchored pattern ("vendor/**", "**/dist/*.js"), or a plain
// glob with '*'/'?' but no "**" ("*.test.ts", matched at any depth).
func matchesGlob(path, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return path == pattern || strings.HasSuffix(path, "/"+pattern) || strings.HasPrefix(path, pattern+"/")
	}
	if strings.Contains(pattern, "**") {
		return matchDoubleStarGlob(path, pattern)
	}
	if globSegmentMatch(path, pattern) {
		return true
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if globSegmentMatch(strings.Join(parts[i:], "/"), pattern) {
			return true
		}
	}
	return false
}

// matchDoubleStarGlob matches a pattern containing exactly one "**"
// against path: the literal segments before "**" (head) must appear
// as a contiguous run of path segments starting anywhere, "**"
// absorbs zero or more segments after that run, and whatever remains
// (tail, itself a plain glob) must match the rest of the path.
func matchDoubleStarGlob(path, pattern string) bool {
	idx := strings.Index(pattern, "**")
	head := strings.TrimSuffix(pattern[:idx], "/")
	tail := strings.TrimPrefix(pattern[idx+2:], "/")

	var headParts []string
	if head != "" {
		headParts = strings.Split(head, "/")
	}

	parts := strings.Split(path, "/")
	for start := 0; start+len(headParts) <= len(parts); start++ {
		if !segmentsEqual(parts[start:start+len(headParts)], headParts) {
			continue
		}
		bodyStart := start + len(headParts)
		for end := bodyStart; end <= len(parts); end++ {
			if tail == "" {
				return true
			}
			if globSegmentMatch(strings.Join(parts[end:], "/"), tail) {
				return true
			}
		}
	}
	return false
}

func segmentsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// globSegmentMatch matches pattern against path using '*' (any run of
// characters, never crossing a '/') and '?' (any single non-'/'
// character). Uses the classic iterative star-matching algorithm
// (track the most recent '*' and the path position it last tried,
// backtrack by advancing that position one character on a mismatch)
// rather than recursive backtracking over parallel pattern/path
// indices, so no call stack grows with pattern length.
func globSegmentMatch(path, pattern string) bool {
	pIdx, sIdx := 0, 0
	starIdx, starMatchIdx := -1, 0

	for sIdx < len(path) {
		switch {
		case pIdx < len(pattern) && pattern[pIdx] == '?' && path[sIdx] != '/':
			pIdx++
			sIdx++
		case pIdx < len(pattern) && pattern[pIdx] == path[sIdx]:
			pIdx++
			sIdx++
		case pIdx < len(pattern) && pattern[pIdx] == '*':
			starIdx = pIdx
			starMatchIdx = sIdx
			pIdx++
		case starIdx != -1 && path[starMatchIdx] != '/':
			pIdx = starIdx + 1
			starMatchIdx++
			sIdx = starMatchIdx
		default:
			return false
		}
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(pattern)
}
