package token_histogram

import (
	"log"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

const DefaultProgressInterval = 10 * time.Second

// Progress tracks finished shards, and every Interval, it logs how many
// shards, bytes and tokens have been processed so far. The last shard is
// always reported.
type Progress struct {
	Expected int
	Interval time.Duration
	shards   atomic.Int64
	bytes    atomic.Uint64
	tokens   atomic.Uint64
	start    time.Time
	mu       sync.Mutex
	last     time.Time
}

func NewProgress(expected int, interval time.Duration) *Progress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	now := time.Now()
	return &Progress{
		Expected: expected,
		Interval: interval,
		start:    now,
		last:     now,
	}
}

// Observe records a finished shard. Safe for concurrent use, so it can be
// used directly as AggregatorConfig.OnShardDone.
func (p *Progress) Observe(result ShardResult) {
	p.bytes.Add(uint64(result.Bytes))
	p.tokens.Add(result.Tokens)
	done := int(p.shards.Add(1))

	p.mu.Lock()
	defer p.mu.Unlock()
	if done != p.Expected && time.Since(p.last) < p.Interval {
		return
	}
	p.last = time.Now()
	elapsed := p.last.Sub(p.start).Seconds()
	log.Printf("Shards %d/%d [%s read, %s tokens, %0.2f tokens/s]",
		done, p.Expected, humanize.Bytes(p.bytes.Load()),
		formatCount(p.tokens.Load()),
		float64(p.tokens.Load())/math.Max(elapsed, 1e-9))
}

func (p *Progress) Shards() int {
	return int(p.shards.Load())
}

func (p *Progress) Bytes() uint64 {
	return p.bytes.Load()
}

func (p *Progress) Tokens() uint64 {
	return p.tokens.Load()
}

func formatCount(count uint64) string {
	if count > math.MaxInt64 {
		return strconv.FormatUint(count, 10)
	}
	return humanize.Comma(int64(count))
}
