package types

import (
	"sort"
)

// Add increments the count for a single token.
func (counts TokenCounts) Add(token Token) {
	counts[token]++
}

// AddTokens increments the count of every token in the slice.
func (counts TokenCounts) AddTokens(tokens Tokens) {
	for idx := range tokens {
		counts[tokens[idx]]++
	}
}

// Merge adds every count from other into counts.
func (counts TokenCounts) Merge(other TokenCounts) {
	for token, count := range other {
		counts[token] += count
	}
}

// Total returns the sum of all counts.
func (counts TokenCounts) Total() (total uint64) {
	for _, count := range counts {
		total += count
	}
	return total
}

// Equal reports whether both maps hold exactly the same entries.
func (counts TokenCounts) Equal(other TokenCounts) bool {
	if len(counts) != len(other) {
		return false
	}
	for token, count := range counts {
		if otherCount, ok := other[token]; !ok || otherCount != count {
			return false
		}
	}
	return true
}

// Sorted returns the entries ordered by descending count, ties broken by
// ascending token id.
func (counts TokenCounts) Sorted() []TokenCount {
	entries := make([]TokenCount, 0, len(counts))
	for token, count := range counts {
		entries = append(entries, TokenCount{token, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Token < entries[j].Token
	})
	return entries
}

// Top returns at most n entries with the highest counts.
func (counts TokenCounts) Top(n int) []TokenCount {
	if n <= 0 {
		return nil
	}
	sorted := counts.Sorted()
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
