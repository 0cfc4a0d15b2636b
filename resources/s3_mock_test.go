package resources

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3MockClient is an in-memory S3Client. Objects are keyed by
// "bucket/key". Listing returns PageSize keys per page, or MaxKeys when
// smaller.
type S3MockClient struct {
	mu                 sync.Mutex
	Objects            map[string][]byte
	PageSize           int
	ListObjectsV2Error error
	GetObjectError     error
	PutObjectError     error
	ListCalls          int
}

func NewS3MockClient() *S3MockClient {
	return &S3MockClient{Objects: make(map[string][]byte), PageSize: 1000}
}

func (m *S3MockClient) ListObjectsV2(input *s3.ListObjectsV2Input) (
	*s3.ListObjectsV2Output,
	error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListObjectsV2Error != nil {
		return nil, m.ListObjectsV2Error
	}
	bucket := aws.StringValue(input.Bucket)
	prefix := aws.StringValue(input.Prefix)
	keys := make([]string, 0)
	for fullKey := range m.Objects {
		b, key, _ := strings.Cut(fullKey, "/")
		if b == bucket && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if input.ContinuationToken != nil {
		for idx, key := range keys {
			if key == *input.ContinuationToken {
				start = idx
				break
			}
		}
	}
	pageSize := m.PageSize
	if maxKeys := int(aws.Int64Value(input.MaxKeys)); maxKeys > 0 &&
		maxKeys < pageSize {
		pageSize = maxKeys
	}
	end := start + pageSize
	truncated := end < len(keys)
	if !truncated {
		end = len(keys)
	}
	output := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	for _, key := range keys[start:end] {
		output.Contents = append(output.Contents, &s3.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(m.Objects[bucket+"/"+key]))),
		})
	}
	if truncated {
		output.NextContinuationToken = aws.String(keys[end])
	}
	return output, nil
}

func (m *S3MockClient) GetObject(input *s3.GetObjectInput) (
	*s3.GetObjectOutput,
	error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetObjectError != nil {
		return nil, m.GetObjectError
	}
	data, ok := m.Objects[aws.StringValue(input.Bucket)+"/"+
		aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(
			s3.ErrCodeNoSuchKey, "The specified key does not exist", nil,
		)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *S3MockClient) PutObject(input *s3.PutObjectInput) (
	*s3.PutObjectOutput,
	error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutObjectError != nil {
		return nil, m.PutObjectError
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.Objects[aws.StringValue(input.Bucket)+"/"+
		aws.StringValue(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}
