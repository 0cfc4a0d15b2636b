package token_histogram

import (
	"log"
	"math"
	"time"

	"github.com/wbrown/token_histogram/types"
)

// Summary holds the operator-facing figures of a finished run.
type Summary struct {
	Shards   int
	Distinct int
	Total    uint64
	Elapsed  time.Duration
	Top      []types.TokenCount
}

// Summarize collects the completion figures of a histogram, including the
// topN most frequent tokens when topN > 0.
func Summarize(histogram *Histogram, shards int, elapsed time.Duration,
	topN int) Summary {
	summary := Summary{
		Shards:   shards,
		Distinct: histogram.Distinct(),
		Total:    histogram.Total(),
		Elapsed:  elapsed,
	}
	if topN > 0 {
		summary.Top = histogram.Snapshot().Top(topN)
	}
	return summary
}

func (s Summary) Log() {
	seconds := s.Elapsed.Seconds()
	log.Printf("Finished counting %d shards in %0.2fs, %0.2f tokens/s",
		s.Shards, seconds, float64(s.Total)/math.Max(seconds, 1e-9))
	log.Printf("Saw %s distinct tokens, %s tokens total",
		formatCount(uint64(s.Distinct)), formatCount(s.Total))
	for rank, entry := range s.Top {
		log.Printf("%4d. token %d: %s", rank+1, entry.Token,
			formatCount(entry.Count))
	}
}
