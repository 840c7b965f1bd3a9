// Package search provides pure, stateless filtering and fuzzy ranking over
// already-materialized record slices. Nothing here touches storage, so
// identical inputs always produce identical, order-stable outputs.
package search

import (
	"sort"
	"strings"
	"time"

	"passvault/internal/domain/model"
)

// Criteria bundles the optional filters applied by FilterByCriteria.
// A zero-value criterion is a no-op; set criteria compose with AND.
type Criteria struct {
	// Query is matched case-insensitively as a substring of service or
	// username.
	Query string
	// From/To bound UpdatedAt inclusively. Either side may be nil.
	From *time.Time
	To   *time.Time
	// Services, when non-empty, is an allow-list of exact service values.
	Services []string
}

// FilterBySubstring returns the records whose service or username contains
// query, case-insensitively. An empty or whitespace-only query returns the
// input unchanged.
func FilterBySubstring(records []model.PasswordRecord, query string) []model.PasswordRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	out := []model.PasswordRecord{}
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Service), q) ||
			strings.Contains(strings.ToLower(rec.Username), q) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterByCriteria applies, in order: substring filtering, the inclusive
// UpdatedAt window, then the service allow-list.
func FilterByCriteria(records []model.PasswordRecord, c Criteria) []model.PasswordRecord {
	out := FilterBySubstring(records, c.Query)

	if c.From != nil || c.To != nil {
		windowed := []model.PasswordRecord{}
		for _, rec := range out {
			if c.From != nil && rec.UpdatedAt.Before(*c.From) {
				continue
			}
			if c.To != nil && rec.UpdatedAt.After(*c.To) {
				continue
			}
			windowed = append(windowed, rec)
		}
		out = windowed
	}

	if len(c.Services) > 0 {
		allowed := make(map[string]struct{}, len(c.Services))
		for _, s := range c.Services {
			allowed[s] = struct{}{}
		}
		kept := []model.PasswordRecord{}
		for _, rec := range out {
			if _, ok := allowed[rec.Service]; ok {
				kept = append(kept, rec)
			}
		}
		out = kept
	}

	return out
}

// FuzzyRank scores every record against the query and returns the non-zero
// scorers sorted by descending score. Equal scores keep their input order.
// An empty query returns the input unchanged, unranked and unfiltered.
func FuzzyRank(records []model.PasswordRecord, query string) []model.PasswordRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	type scored struct {
		rec   model.PasswordRecord
		score float64
	}

	ranked := []scored{}
	for _, rec := range records {
		s := Score(rec, q)
		if s > 0 {
			ranked = append(ranked, scored{rec: rec, score: s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]model.PasswordRecord, len(ranked))
	for i, s := range ranked {
		out[i] = s.rec
	}
	return out
}

// Score computes the relevance of one record for a lowercased query:
// the best field bonus (exact 100, prefix 50, contains 25) for service and
// username each, plus 10x the character similarity of each field.
func Score(rec model.PasswordRecord, query string) float64 {
	service := strings.ToLower(rec.Service)
	username := strings.ToLower(rec.Username)

	score := fieldBonus(service, query) + fieldBonus(username, query)
	score += 10 * characterSimilarity(service, query)
	score += 10 * characterSimilarity(username, query)
	return score
}

func fieldBonus(field, query string) float64 {
	switch {
	case field == query:
		return 100
	case strings.HasPrefix(field, query):
		return 50
	case strings.Contains(field, query):
		return 25
	}
	return 0
}

// characterSimilarity maps edit distance into [0, 1]: identical strings
// score 1, strings with nothing in common score 0.
func characterSimilarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return float64(maxLen-levenshtein(a, b)) / float64(maxLen)
}

// levenshtein computes the classic edit distance with unit costs for
// insert, delete, and substitute, using a two-row rolling buffer.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
