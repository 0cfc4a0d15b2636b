package token_histogram

import (
	"fmt"
)

// DecodeStage names the step of shard decoding that failed.
type DecodeStage string

const (
	StageContainer  DecodeStage = "container"
	StageDecompress DecodeStage = "decompress"
	StagePayload    DecodeStage = "payload"
)

// DecodeError reports a shard that is not a valid tar archive, a member that
// is not valid gzip, or a payload that is not a JSON array of token ids.
type DecodeError struct {
	Stage  DecodeStage
	Member string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("decode %s: member `%s`: %v", e.Stage, e.Member,
			e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SerializeError reports a histogram that could not be encoded.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serialize histogram: %v", e.Err)
}

func (e *SerializeError) Unwrap() error {
	return e.Err
}

// TaskStage names the step of a shard task that failed.
type TaskStage string

const (
	StageLoad   TaskStage = "load"
	StageDecode TaskStage = "decode"
)

// AggregationError is the terminal error of a failed run. It wraps the
// resources.IOError or DecodeError of the first shard task observed to
// fail.
type AggregationError struct {
	Path  string
	Stage TaskStage
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("shard `%s`: %s failed: %v", e.Path, e.Stage, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
