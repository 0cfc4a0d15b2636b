package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/wbrown/token_histogram"
	"github.com/wbrown/token_histogram/resources"
)

// locationList is a repeatable flag; each value may also be a
// comma-separated list.
type locationList []string

func (l *locationList) String() string {
	return strings.Join(*l, ",")
}

func (l *locationList) Set(value string) error {
	for _, location := range strings.Split(value, ",") {
		if location = strings.TrimSpace(location); location != "" {
			*l = append(*l, location)
		}
	}
	return nil
}

func needsS3(locations ...string) bool {
	for _, location := range locations {
		if resources.IsS3URI(location) {
			return true
		}
	}
	return false
}

func parseInterval(value string) (time.Duration, error) {
	interval, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid -progress interval %q: %v", value,
			err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("-progress interval must be positive")
	}
	return interval, nil
}

// buildConfig validates parsed flag values and turns them into a
// PipelineConfig. The S3 client is left for the caller to attach.
func buildConfig(inputs []string, output string, exts string, workers int,
	stripes int, top int, progress string,
	reorder string) (token_histogram.PipelineConfig, error) {
	config := token_histogram.NewPipelineConfig()
	if len(inputs) == 0 {
		return config, fmt.Errorf("must provide -input")
	}
	if output == "" {
		return config, fmt.Errorf("must provide -output")
	}
	if workers < 1 {
		return config, fmt.Errorf("workers must be greater than 0")
	}
	if stripes < 1 {
		return config, fmt.Errorf("stripes must be greater than 0")
	}
	if top < 0 {
		return config, fmt.Errorf("top must not be negative")
	}
	if !resources.ValidReorder(reorder) {
		return config, fmt.Errorf("invalid -reorder %q", reorder)
	}
	interval, intervalErr := parseInterval(progress)
	if intervalErr != nil {
		return config, intervalErr
	}
	config.Inputs = inputs
	config.Output = output
	config.Extensions = resources.NormalizeExtensions(
		strings.Split(exts, ","))
	config.Aggregator.Workers = workers
	config.Aggregator.Stripes = stripes
	config.TopN = top
	config.ProgressInterval = interval
	config.Reorder = reorder
	return config, nil
}

func main() {
	var inputs locationList
	flag.Var(&inputs, "input",
		"input shard file, directory, s3://bucket/prefix or http(s) URL; "+
			"repeatable or comma-separated")
	output := flag.String("output", "",
		"output location for the JSON histogram, local path or "+
			"s3://bucket/key")
	exts := flag.String("ext", "tar",
		"comma-separated shard extensions to search directories for")
	workers := flag.Int("workers", runtime.NumCPU(),
		"number of shards to decode in parallel")
	stripes := flag.Int("stripes", token_histogram.DefaultStripes,
		"number of lock stripes in the global histogram")
	top := flag.Int("top", 0,
		"log the N most frequent tokens when done")
	progress := flag.String("progress", "10s",
		"interval between progress reports")
	reorder := flag.String("reorder", "",
		"shard scheduling order: none, path_ascending, path_descending, "+
			"size_ascending, size_descending, or shuffle")
	flag.Parse()

	config, configErr := buildConfig(inputs, *output, *exts, *workers,
		*stripes, *top, *progress, *reorder)
	if configErr != nil {
		flag.Usage()
		log.Fatal(configErr)
	}

	log.Printf("Token histogram inputs: %s\n", inputs.String())
	log.Printf("Token histogram output: %s\n", config.Output)
	log.Printf("Shard extensions: %s\n",
		strings.Join(config.Extensions, ","))
	log.Printf("Workers: %d\n", config.Aggregator.Workers)
	if config.Reorder != "" {
		log.Printf("Reorder: %s\n", config.Reorder)
	}

	if needsS3(append([]string{config.Output}, config.Inputs...)...) {
		s3c, s3Err := resources.NewS3Client()
		if s3Err != nil {
			log.Fatal(s3Err)
		}
		config.S3 = s3c
	}

	summary, err := token_histogram.CountTokens(config)
	if err != nil {
		log.Fatal(err)
	}
	summary.Log()
}
