package token_histogram

import (
	"encoding/binary"
	"sync"

	"github.com/wbrown/token_histogram/types"
	"github.com/zeebo/xxh3"
)

const DefaultStripes = 256

type stripe struct {
	sync.Mutex
	counts types.TokenCounts
	// Keeps neighbouring stripe locks off the same cache line.
	_ [48]byte
}

// Histogram is a token id → count map that is safe for concurrent Merge
// calls. The key space is split into a power-of-two number of stripes, each
// behind its own lock, selected by an xxh3 hash of the token id.
type Histogram struct {
	stripes []stripe
	mask    uint64
}

// NewHistogram
// Returns an empty Histogram with at least `stripes` stripes, rounded up to a
// power of two. Non-positive values select DefaultStripes.
func NewHistogram(stripes int) *Histogram {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	numStripes := 1
	for numStripes < stripes {
		numStripes <<= 1
	}
	histogram := &Histogram{
		stripes: make([]stripe, numStripes),
		mask:    uint64(numStripes - 1),
	}
	for idx := range histogram.stripes {
		histogram.stripes[idx].counts = make(types.TokenCounts)
	}
	return histogram
}

func (h *Histogram) stripeFor(token types.Token) *stripe {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(token))
	return &h.stripes[xxh3.Hash(key[:])&h.mask]
}

// Stripes returns the number of lock stripes.
func (h *Histogram) Stripes() int {
	return len(h.stripes)
}

// Add adds count occurrences of a single token.
func (h *Histogram) Add(token types.Token, count uint64) {
	s := h.stripeFor(token)
	s.Lock()
	s.counts[token] += count
	s.Unlock()
}

// Merge adds every entry of a per-shard count into the histogram. Entries
// are grouped by stripe first so each stripe lock is taken at most once per
// call.
func (h *Histogram) Merge(local types.TokenCounts) {
	if len(local) == 0 {
		return
	}
	// Small partials are not worth the bucketing.
	if len(local) < len(h.stripes) {
		for token, count := range local {
			h.Add(token, count)
		}
		return
	}
	buckets := make(map[*stripe][]types.TokenCount, len(h.stripes))
	for token, count := range local {
		s := h.stripeFor(token)
		buckets[s] = append(buckets[s], types.TokenCount{
			Token: token, Count: count})
	}
	for s, entries := range buckets {
		s.Lock()
		for _, entry := range entries {
			s.counts[entry.Token] += entry.Count
		}
		s.Unlock()
	}
}

// Get returns the count for a token, zero if it was never seen.
func (h *Histogram) Get(token types.Token) uint64 {
	s := h.stripeFor(token)
	s.Lock()
	defer s.Unlock()
	return s.counts[token]
}

// Total returns the sum of all counts.
func (h *Histogram) Total() (total uint64) {
	for idx := range h.stripes {
		s := &h.stripes[idx]
		s.Lock()
		total += s.counts.Total()
		s.Unlock()
	}
	return total
}

// Distinct returns the number of distinct tokens seen.
func (h *Histogram) Distinct() (distinct int) {
	for idx := range h.stripes {
		s := &h.stripes[idx]
		s.Lock()
		distinct += len(s.counts)
		s.Unlock()
	}
	return distinct
}

// Snapshot copies the histogram into a plain map. Stripes are copied one at
// a time, so the result is only a consistent point-in-time view once all
// merges have finished.
func (h *Histogram) Snapshot() types.TokenCounts {
	snapshot := make(types.TokenCounts, h.Distinct())
	for idx := range h.stripes {
		s := &h.stripes[idx]
		s.Lock()
		for token, count := range s.counts {
			snapshot[token] = count
		}
		s.Unlock()
	}
	return snapshot
}
