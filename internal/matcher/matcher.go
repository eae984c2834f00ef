// Package matcher implements the fuzzy scoring function and the ranking
// comparator used to order results.
package matcher

import (
	"sort"
	"strings"

	"github.com/Vrohs/winfuzz/internal/index"
)

// Scoring weights. The direction matters more than the exact values: runs
// beat scattered matches, segment starts beat mid-word hits, short candidates
// beat long ones carrying the same subsequence.
const (
	matchBonus       = 16 // per matched character
	consecutiveBonus = 8  // matched character extends the previous run
	sepBonus         = 12 // match at index 0 or right after a path separator
	wordBonus        = 8  // match right after '.', '_', '-', or space
	gapPenalty       = 1  // per skipped character inside the matched span
	maxFirstPenalty  = 20 // cap on the first-match position penalty
)

// Match pairs a record with its score for one query revision.
type Match struct {
	Record index.PathRecord
	Score  int
}

// Score rates candidate against query. The second return is false when the
// query is not a case-insensitive subsequence of the candidate; the score is
// meaningless in that case. An empty query matches everything with a neutral
// score. Pure: identical inputs always produce identical output.
func Score(query, candidate string) (int, bool) {
	if query == "" {
		return 0, true
	}

	q := strings.ToLower(query)
	c := strings.ToLower(candidate)

	score := 0
	first := -1
	prev := -2 // never adjacent to index 0
	ci := 0
	for _, qr := range q {
		idx := indexRuneFrom(c, ci, qr)
		if idx < 0 {
			return 0, false
		}
		score += matchBonus
		if idx == prev+1 {
			score += consecutiveBonus
		}
		switch boundaryAt(c, idx) {
		case boundarySep:
			score += sepBonus
		case boundaryWord:
			score += wordBonus
		}
		if first < 0 {
			first = idx
		} else {
			score -= gapPenalty * (idx - prev - 1)
		}
		prev = idx
		ci = idx + 1
	}

	score -= min(first, maxFirstPenalty)
	score -= len(candidate) / 2
	if score < 0 {
		score = 0
	}
	return score, true
}

type boundary int

const (
	boundaryNone boundary = iota
	boundaryWord
	boundarySep
)

// boundaryAt classifies the character preceding position idx. Callers pass
// the lowercased candidate: lowering can change a rune's byte length, so
// offsets found in it are only valid in it. The separator and word characters
// are ASCII and survive lowering unchanged.
func boundaryAt(s string, idx int) boundary {
	if idx == 0 {
		return boundarySep
	}
	switch s[idx-1] {
	case '/', '\\':
		return boundarySep
	case '.', '_', '-', ' ':
		return boundaryWord
	}
	return boundaryNone
}

// indexRuneFrom returns the byte index of the first occurrence of r in s at
// or after position from, or -1.
func indexRuneFrom(s string, from int, r rune) int {
	if from >= len(s) {
		return -1
	}
	idx := strings.IndexRune(s[from:], r)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// Rank scores every record against query and returns at most limit matches
// ordered by descending score, ties broken by ascending path. limit <= 0
// means unbounded.
func Rank(records []index.PathRecord, query string, limit int) []Match {
	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		if s, ok := Score(query, rec.Path); ok {
			matches = append(matches, Match{Record: rec, Score: s})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.Path < matches[j].Record.Path
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
