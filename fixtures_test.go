package token_histogram

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/token_histogram/types"
)

type shardMember struct {
	Name string
	Data []byte
	Dir  bool
}

func gzipBytes(t testing.TB, payload []byte) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	gz := gzip.NewWriter(buf)
	_, err := gz.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func buildShard(t testing.TB, members ...shardMember) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	archive := tar.NewWriter(buf)
	for _, member := range members {
		header := &tar.Header{
			Name:     member.Name,
			Mode:     0644,
			Size:     int64(len(member.Data)),
			Typeflag: tar.TypeReg,
		}
		if member.Dir {
			header.Typeflag = tar.TypeDir
			header.Mode = 0755
			header.Size = 0
		}
		require.NoError(t, archive.WriteHeader(header))
		if !member.Dir {
			_, err := archive.Write(member.Data)
			require.NoError(t, err)
		}
	}
	require.NoError(t, archive.Close())
	return buf.Bytes()
}

// gnuShard builds a single-member GNU format shard.
func gnuShard(t testing.TB, member shardMember) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	archive := tar.NewWriter(buf)
	require.NoError(t, archive.WriteHeader(&tar.Header{
		Name:     member.Name,
		Mode:     0644,
		Size:     int64(len(member.Data)),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatGNU,
	}))
	_, err := archive.Write(member.Data)
	require.NoError(t, err)
	require.NoError(t, archive.Close())
	return buf.Bytes()
}

// retypeFirstMember rewrites the type flag of a shard's first header and
// fixes its checksum. With sparse set, the header also gets an old GNU
// sparse map holding the whole body as one data extent.
func retypeFirstMember(shard []byte, typeflag byte, sparse bool) []byte {
	block := shard[:512]
	block[156] = typeflag
	if sparse {
		size := append([]byte{}, block[124:136]...)
		copy(block[386:398], fmt.Sprintf("%011o\x00", 0))
		copy(block[398:410], size)
		copy(block[483:495], size)
	}
	var sum int64
	for idx, c := range block {
		if idx >= 148 && idx < 156 {
			c = ' '
		}
		sum += int64(c)
	}
	copy(block[148:156], fmt.Sprintf("%06o\x00 ", sum))
	return shard
}

// payloadMember gzips a raw JSON payload into a shard member.
func payloadMember(t testing.TB, name string, payload string) shardMember {
	return shardMember{Name: name, Data: gzipBytes(t, []byte(payload))}
}

// tokenShard builds a shard with one member per document.
func tokenShard(t testing.TB, docs ...types.Tokens) []byte {
	t.Helper()
	members := make([]shardMember, 0, len(docs))
	for idx, doc := range docs {
		if doc == nil {
			doc = types.Tokens{}
		}
		payload, err := json.Marshal(doc)
		require.NoError(t, err)
		members = append(members, shardMember{
			Name: fmt.Sprintf("doc-%05d.json.gz", idx),
			Data: gzipBytes(t, payload),
		})
	}
	return buildShard(t, members...)
}

func writeShard(t testing.TB, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// exampleShards returns the two shards used throughout the tests: shard A
// holds [1,2,2,3] and [3,3], shard B holds [1,1,2].
func exampleShards(t testing.TB) (shardA []byte, shardB []byte) {
	shardA = tokenShard(t, types.Tokens{1, 2, 2, 3}, types.Tokens{3, 3})
	shardB = tokenShard(t, types.Tokens{1, 1, 2})
	return shardA, shardB
}

var exampleCounts = types.TokenCounts{1: 3, 2: 3, 3: 3}
