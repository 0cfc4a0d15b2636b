package token_histogram

import (
	"encoding/json"
	"strconv"

	"github.com/wbrown/token_histogram/types"
)

// SerializeHistogram
// Encodes a histogram snapshot as a JSON object whose keys are decimal token
// ids and whose values are counts. An empty snapshot encodes as `{}`.
func SerializeHistogram(snapshot types.TokenCounts) ([]byte, error) {
	document := make(map[string]uint64, len(snapshot))
	for token, count := range snapshot {
		document[strconv.FormatUint(uint64(token), 10)] = count
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return nil, &SerializeError{Err: err}
	}
	return encoded, nil
}

// ParseHistogram reads a document written by SerializeHistogram.
func ParseHistogram(data []byte) (types.TokenCounts, error) {
	document := make(map[string]uint64)
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, &DecodeError{Stage: StagePayload, Err: err}
	}
	counts := make(types.TokenCounts, len(document))
	for key, count := range document {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, &DecodeError{Stage: StagePayload, Err: err}
		}
		counts[types.Token(id)] = count
	}
	return counts, nil
}
