package token_histogram

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wbrown/token_histogram/types"
)

// DecodeShard
// Counts every token id in a shard held in memory. See DecodeShardReader.
func DecodeShard(data []byte) (types.TokenCounts, error) {
	return DecodeShardReader(bytes.NewReader(data))
}

// DecodeShardReader
// Walks a tar stream in archive order. Every regular, contiguous or sparse
// member is gunzipped and parsed as a JSON array of non-negative integer
// token ids, and each id is counted. Header-only members are skipped, and a
// member of any other type that has a body is a container error. Members
// are streamed one at a time and never held whole in memory. An archive
// with no members yields empty counts.
func DecodeShardReader(r io.Reader) (types.TokenCounts, error) {
	counts := make(types.TokenCounts)
	archive := tar.NewReader(r)
	for {
		header, err := archive.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &DecodeError{Stage: StageContainer, Err: err}
		}
		switch header.Typeflag {
		case tar.TypeReg, tar.TypeCont, tar.TypeGNUSparse:
		case tar.TypeDir, tar.TypeLink, tar.TypeSymlink, tar.TypeChar,
			tar.TypeBlock, tar.TypeFifo, tar.TypeXGlobalHeader:
			// No payload.
			continue
		default:
			// Unknown members with a body would drop tokens if skipped.
			if header.Size == 0 {
				continue
			}
			return nil, &DecodeError{
				Stage:  StageContainer,
				Member: header.Name,
				Err: fmt.Errorf("unsupported member type %q",
					header.Typeflag),
			}
		}
		if memberErr := decodeMember(archive, counts); memberErr != nil {
			memberErr.Member = header.Name
			return nil, memberErr
		}
	}
	return counts, nil
}

// readErrTracker remembers the first non-EOF error from the wrapped reader,
// so that a JSON syntax error caused by a corrupt gzip stream is reported
// as a decompression failure.
type readErrTracker struct {
	reader io.Reader
	err    error
}

func (t *readErrTracker) Read(p []byte) (int, error) {
	n, err := t.reader.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

func decodeMember(member io.Reader, counts types.TokenCounts) *DecodeError {
	gz, gzErr := gzip.NewReader(member)
	if gzErr != nil {
		return &DecodeError{Stage: StageDecompress, Err: gzErr}
	}
	defer gz.Close()

	tracker := &readErrTracker{reader: gz}
	if err := countTokenArray(tracker, counts); err != nil {
		if tracker.err != nil {
			return &DecodeError{Stage: StageDecompress, Err: tracker.err}
		}
		return &DecodeError{Stage: StagePayload, Err: err}
	}
	return nil
}

var errNotArray = errors.New("top-level value is not an array")

// countTokenArray consumes exactly one JSON array of token ids from r,
// followed by nothing but whitespace.
func countTokenArray(r io.Reader, counts types.TokenCounts) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	open, err := dec.Token()
	if err == io.EOF {
		return errNotArray
	} else if err != nil {
		return err
	}
	if delim, ok := open.(json.Delim); !ok || delim != '[' {
		return errNotArray
	}

	// Ids are counted as they are read, so a failure part way through
	// leaves counts partially updated; callers discard them on error.
	for idx := 0; dec.More(); idx++ {
		tok, tokErr := dec.Token()
		if tokErr != nil {
			return tokErr
		}
		num, ok := tok.(json.Number)
		if !ok {
			return fmt.Errorf("element %d: %v is not an integer", idx,
				describeToken(tok))
		}
		id, parseErr := strconv.ParseUint(string(num), 10, 64)
		if parseErr != nil {
			return fmt.Errorf("element %d: %s is not a token id", idx,
				num)
		}
		counts.Add(types.Token(id))
	}

	if closing, closeErr := dec.Token(); closeErr != nil {
		return closeErr
	} else if delim, ok := closing.(json.Delim); !ok || delim != ']' {
		return fmt.Errorf("unexpected %v at end of array",
			describeToken(closing))
	}
	if _, trailingErr := dec.Token(); trailingErr != io.EOF {
		if trailingErr != nil {
			return trailingErr
		}
		return errors.New("trailing data after array")
	}
	return nil
}

func describeToken(tok json.Token) string {
	switch t := tok.(type) {
	case nil:
		return "null"
	case json.Delim:
		return fmt.Sprintf("`%s`", t)
	case string:
		return strconv.Quote(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
