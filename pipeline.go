package token_histogram

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wbrown/token_histogram/resources"
)

// PipelineConfig
// Everything a full counting run needs: where shards live, where the
// histogram goes, and how to schedule the work. Reorder is one of the
// resources.Reorder* specs. S3 may be nil when no `s3://` locations are
// involved.
type PipelineConfig struct {
	Inputs           []string
	Output           string
	Extensions       []string
	Aggregator       AggregatorConfig
	TopN             int
	ProgressInterval time.Duration
	Reorder          string
	S3               resources.S3Client
}

// NewPipelineConfig
// Creates a PipelineConfig that looks for `.tar` shards with the default
// aggregator settings.
func NewPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Extensions:       []string{"tar"},
		Aggregator:       NewAggregatorConfig(),
		ProgressInterval: DefaultProgressInterval,
	}
}

// CountTokens
// Discovers shards, aggregates their token counts, and writes the serialized
// histogram to the output location. Nothing is written unless every shard
// was decoded successfully.
func CountTokens(config PipelineConfig) (Summary, error) {
	begin := time.Now()
	if len(config.Inputs) == 0 {
		return Summary{}, errors.New("no input locations")
	}
	if config.Output == "" {
		return Summary{}, errors.New("no output location")
	}
	if !resources.ValidReorder(config.Reorder) {
		return Summary{}, fmt.Errorf("invalid reorder spec: %s",
			config.Reorder)
	}

	infos, discoverErr := resources.ExpandPathInfos(config.Inputs,
		config.Extensions, config.S3)
	if discoverErr != nil {
		return Summary{}, discoverErr
	}
	if reorderErr := resources.ReorderPathInfos(infos,
		config.Reorder); reorderErr != nil {
		return Summary{}, reorderErr
	}
	paths := resources.GetPaths(infos)
	log.Printf("Found %d shards in %d input locations", len(paths),
		len(config.Inputs))

	s3c := config.S3
	aggConfig := config.Aggregator
	aggConfig.NewSource = func() resources.ByteSource {
		return resources.NewSource(s3c)
	}
	progress := NewProgress(len(paths), config.ProgressInterval)
	onShardDone := aggConfig.OnShardDone
	aggConfig.OnShardDone = func(result ShardResult) {
		progress.Observe(result)
		if onShardDone != nil {
			onShardDone(result)
		}
	}

	histogram, processed, runErr := NewAggregator(aggConfig).Run(paths)
	if runErr != nil {
		return Summary{Shards: processed, Elapsed: time.Since(begin)},
			runErr
	}

	encoded, serializeErr := SerializeHistogram(histogram.Snapshot())
	if serializeErr != nil {
		return Summary{}, serializeErr
	}
	sink := resources.NewSource(s3c)
	defer sink.Close()
	if writeErr := sink.Write(encoded, config.Output); writeErr != nil {
		return Summary{}, writeErr
	}
	log.Printf("Wrote histogram to %s", config.Output)

	return Summarize(histogram, processed, time.Since(begin),
		config.TopN), nil
}
