package token_histogram

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/token_histogram/types"
)

func requireDecodeError(t *testing.T, err error, stage DecodeStage) *DecodeError {
	t.Helper()
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr), "expected DecodeError, got %v",
		err)
	assert.Equal(t, stage, decodeErr.Stage)
	return decodeErr
}

func TestDecodeShard(t *testing.T) {
	shardA, shardB := exampleShards(t)

	counts, err := DecodeShard(shardA)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{1: 1, 2: 2, 3: 3}, counts)

	counts, err = DecodeShard(shardB)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{1: 2, 2: 1}, counts)
}

func TestDecodeShardIdempotent(t *testing.T) {
	shard := tokenShard(t, types.Tokens{7, 7, 8, 1 << 40},
		types.Tokens{0, 8})
	first, err := DecodeShard(shard)
	require.NoError(t, err)
	second, err := DecodeShard(shard)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestDecodeShardEmpty(t *testing.T) {
	counts, err := DecodeShard(buildShard(t))
	require.NoError(t, err)
	assert.Empty(t, counts)

	counts, err = DecodeShard(nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestDecodeShardEmptyDocuments(t *testing.T) {
	counts, err := DecodeShard(tokenShard(t, types.Tokens{}, nil,
		types.Tokens{4}))
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{4: 1}, counts)
}

func TestDecodeShardSkipsDirectories(t *testing.T) {
	shard := buildShard(t,
		shardMember{Name: "docs/", Dir: true},
		payloadMember(t, "docs/a.json.gz", "[5, 5]"),
	)
	counts, err := DecodeShard(shard)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{5: 2}, counts)
}

func TestDecodeShardSparseMember(t *testing.T) {
	shard := retypeFirstMember(gnuShard(t,
		payloadMember(t, "sparse.json.gz", "[9, 9, 10]")),
		tar.TypeGNUSparse, true)
	counts, err := DecodeShard(shard)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{9: 2, 10: 1}, counts)
}

func TestDecodeShardContiguousMember(t *testing.T) {
	shard := retypeFirstMember(buildShard(t,
		payloadMember(t, "contiguous.json.gz", "[4]")), tar.TypeCont, false)
	counts, err := DecodeShard(shard)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{4: 1}, counts)
}

func TestDecodeShardUnknownMemberType(t *testing.T) {
	shard := retypeFirstMember(buildShard(t,
		payloadMember(t, "vendor.json.gz", "[1, 2]")), 'Z', false)
	counts, err := DecodeShard(shard)
	assert.Nil(t, counts)
	decodeErr := requireDecodeError(t, err, StageContainer)
	assert.Equal(t, "vendor.json.gz", decodeErr.Member)
}

func TestDecodeShardEmptyMemberBody(t *testing.T) {
	shard := buildShard(t, shardMember{Name: "zero.json.gz"})
	_, err := DecodeShard(shard)
	requireDecodeError(t, err, StageDecompress)
}

func TestDecodeShardWhitespace(t *testing.T) {
	shard := buildShard(t,
		payloadMember(t, "a.json.gz", "\n  [ 1 ,\n 2 ]\n\n"))
	counts, err := DecodeShard(shard)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{1: 1, 2: 1}, counts)
}

func TestDecodeShardMaxTokenId(t *testing.T) {
	shard := buildShard(t, payloadMember(t, "a.json.gz",
		"[18446744073709551615, 0, 18446744073709551615]"))
	counts, err := DecodeShard(shard)
	require.NoError(t, err)
	assert.Equal(t, types.TokenCounts{
		types.Token(^uint64(0)): 2,
		0:                       1,
	}, counts)
}

func TestDecodeShardNotAContainer(t *testing.T) {
	_, err := DecodeShard([]byte("this is not a tar archive"))
	requireDecodeError(t, err, StageContainer)

	_, err = DecodeShard([]byte(strings.Repeat("garbage!", 128)))
	requireDecodeError(t, err, StageContainer)
}

func TestDecodeShardTruncatedContainer(t *testing.T) {
	shard := tokenShard(t, types.Tokens{1, 2, 3})
	_, err := DecodeShard(shard[:600])
	requireDecodeError(t, err, StageContainer)
}

func TestDecodeShardNotGzip(t *testing.T) {
	shard := buildShard(t,
		shardMember{Name: "plain.json", Data: []byte("[1, 2, 3]")})
	_, err := DecodeShard(shard)
	decodeErr := requireDecodeError(t, err, StageDecompress)
	assert.Equal(t, "plain.json", decodeErr.Member)
}

func TestDecodeShardCorruptGzip(t *testing.T) {
	full := gzipBytes(t, []byte(`[1, 2, 3, 4, 5, 6, 7, 8, 9, 10]`))
	// Flip a byte of the CRC in the gzip trailer.
	badChecksum := append([]byte{}, full...)
	badChecksum[len(badChecksum)-8] ^= 0xff
	_, err := DecodeShard(buildShard(t,
		shardMember{Name: "crc.json.gz", Data: badChecksum}))
	requireDecodeError(t, err, StageDecompress)

	doc := make(types.Tokens, 4096)
	for idx := range doc {
		doc[idx] = types.Token(idx * 7919)
	}
	payload, jsonErr := json.Marshal(doc)
	require.NoError(t, jsonErr)
	long := gzipBytes(t, payload)
	_, err = DecodeShard(buildShard(t,
		shardMember{Name: "short.json.gz", Data: long[:len(long)/2]}))
	requireDecodeError(t, err, StageDecompress)
}

func TestDecodeShardBadPayload(t *testing.T) {
	payloads := []struct {
		Name    string
		Payload string
	}{
		{"empty payload", ""},
		{"object", `{"tokens": [1, 2]}`},
		{"bare number", `42`},
		{"string", `"1 2 3"`},
		{"null", `null`},
		{"float element", `[1, 2.5]`},
		{"exponent element", `[1e3]`},
		{"negative element", `[1, -2]`},
		{"string element", `[1, "2"]`},
		{"null element", `[null]`},
		{"bool element", `[true]`},
		{"nested array", `[[1, 2]]`},
		{"object element", `[{"id": 1}]`},
		{"overflowing element", `[18446744073709551616]`},
		{"unterminated array", `[1, 2`},
		{"trailing value", `[1, 2] [3]`},
		{"trailing garbage", `[1, 2] x`},
		{"syntax error", `[1,, 2]`},
	}
	for _, test := range payloads {
		t.Run(test.Name, func(t *testing.T) {
			shard := buildShard(t,
				payloadMember(t, "good.json.gz", "[1]"),
				payloadMember(t, "bad.json.gz", test.Payload),
			)
			counts, err := DecodeShard(shard)
			assert.Nil(t, counts)
			decodeErr := requireDecodeError(t, err, StagePayload)
			assert.Equal(t, "bad.json.gz", decodeErr.Member)
		})
	}
}

func BenchmarkDecodeShard(b *testing.B) {
	b.StopTimer()
	docs := make([]types.Tokens, 64)
	for docIdx := range docs {
		doc := make(types.Tokens, 2048)
		for idx := range doc {
			doc[idx] = types.Token((docIdx*2048 + idx) % 50257)
		}
		docs[docIdx] = doc
	}
	shard := tokenShard(b, docs...)
	b.SetBytes(int64(len(shard)))
	b.ResetTimer()
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeShard(shard); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
}
