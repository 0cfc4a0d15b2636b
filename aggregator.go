package token_histogram

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wbrown/token_histogram/resources"
)

// ShardResult describes one successfully merged shard.
type ShardResult struct {
	Path     string
	Bytes    int
	Tokens   uint64
	Distinct int
	Elapsed  time.Duration
}

// AggregatorConfig
// Configuration for an Aggregator. NewSource is called once per shard task,
// and the returned source is closed when the task ends. OnShardDone is
// called from worker goroutines, concurrently.
type AggregatorConfig struct {
	Workers     int
	Stripes     int
	NewSource   func() resources.ByteSource
	OnShardDone func(ShardResult)
}

// NewAggregatorConfig
// Creates an AggregatorConfig with one worker per CPU, DefaultStripes, and
// local-or-http sources.
func NewAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Workers: runtime.NumCPU(),
		Stripes: DefaultStripes,
		NewSource: func() resources.ByteSource {
			return resources.NewSource(nil)
		},
	}
}

// Aggregator decodes shards on a fixed pool of workers and merges their
// counts into one Histogram.
type Aggregator struct {
	config AggregatorConfig
}

func NewAggregator(config AggregatorConfig) *Aggregator {
	defaults := NewAggregatorConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Stripes <= 0 {
		config.Stripes = defaults.Stripes
	}
	if config.NewSource == nil {
		config.NewSource = defaults.NewSource
	}
	return &Aggregator{config: config}
}

// Run
// Decodes every shard path and returns the merged histogram along with the
// number of shards processed. Tasks run on at most Workers goroutines in no
// particular order, and the histogram is only returned after every task has
// finished. The first task failure observed stops further shards from being
// scheduled, lets in-flight tasks finish, and discards the histogram: the
// returned error is an *AggregationError and the histogram is nil.
func (agg *Aggregator) Run(paths []string) (*Histogram, int, error) {
	histogram := NewHistogram(agg.config.Stripes)
	workers := agg.config.Workers
	if workers > len(paths) {
		workers = len(paths)
	}

	var (
		wg        sync.WaitGroup
		processed atomic.Int64
		failOnce  sync.Once
		runErr    error
	)
	failed := make(chan struct{})
	shardPaths := make(chan string)

	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range shardPaths {
				select {
				case <-failed:
					continue
				default:
				}
				if err := agg.processShard(path, histogram); err != nil {
					failOnce.Do(func() {
						runErr = err
						close(failed)
					})
					continue
				}
				processed.Add(1)
			}
		}()
	}

feed:
	for _, path := range paths {
		select {
		case shardPaths <- path:
		case <-failed:
			break feed
		}
	}
	close(shardPaths)
	wg.Wait()

	if runErr != nil {
		return nil, int(processed.Load()), runErr
	}
	return histogram, int(processed.Load()), nil
}

func (agg *Aggregator) processShard(path string, histogram *Histogram) error {
	start := time.Now()
	source := agg.config.NewSource()
	defer source.Close()

	data, readErr := source.Read(path)
	if readErr != nil {
		return &AggregationError{Path: path, Stage: StageLoad, Err: readErr}
	}
	counts, decodeErr := DecodeShard(data)
	if decodeErr != nil {
		return &AggregationError{Path: path, Stage: StageDecode,
			Err: decodeErr}
	}
	histogram.Merge(counts)

	if agg.config.OnShardDone != nil {
		agg.config.OnShardDone(ShardResult{
			Path:     path,
			Bytes:    len(data),
			Tokens:   counts.Total(),
			Distinct: len(counts),
			Elapsed:  time.Since(start),
		})
	}
	return nil
}
