package resources

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const s3Scheme = "s3://"

// S3Client is the subset of the S3 API used for shard discovery, shard
// reads and result writes. *s3.S3 satisfies it.
type S3Client interface {
	ListObjectsV2(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output,
		error)
	GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error)
}

// NewS3Client
// Creates an S3 client from the SDK's shared configuration and environment
// (AWS_REGION, AWS_PROFILE, credentials files, ...).
func NewS3Client() (S3Client, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

// IsS3URI reports whether the location is an `s3://bucket/key` URI.
func IsS3URI(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URI splits `s3://bucket/key` into bucket and key. The key may be
// empty, meaning the whole bucket.
func ParseS3URI(uri string) (bucket string, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	rest := strings.TrimPrefix(uri, s3Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %s", uri)
	}
	return bucket, key, nil
}

func s3URI(bucket, key string) string {
	return s3Scheme + bucket + "/" + key
}

// getObjectsS3Recursively pages through every object under prefix,
// sending each one on objects. The channel is not closed.
func getObjectsS3Recursively(svc S3Client, bucket, prefix string,
	objects chan<- *s3.Object) error {
	var continuation *string
	for {
		output, err := svc.ListObjectsV2(&s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return err
		}
		for _, obj := range output.Contents {
			objects <- obj
		}
		if !aws.BoolValue(output.IsTruncated) ||
			output.NextContinuationToken == nil {
			return nil
		}
		continuation = output.NextContinuationToken
	}
}

// statObjectS3 returns the object stored under exactly key, or nil when
// there is none. Keys sharing key as a prefix sort after it, so one listed
// entry is enough.
func statObjectS3(svc S3Client, bucket, key string) (*s3.Object, error) {
	output, err := svc.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return nil, err
	}
	for _, obj := range output.Contents {
		if aws.StringValue(obj.Key) == key {
			return obj, nil
		}
	}
	return nil, nil
}

// fetchObjectS3 reads a whole object into memory.
func fetchObjectS3(svc S3Client, bucket, key string) ([]byte, error) {
	output, err := svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	if output.Body == nil {
		return nil, errors.New("empty response body")
	}
	defer output.Body.Close()
	return readAllCounted(s3URI(bucket, key), output.Body,
		aws.Int64Value(output.ContentLength))
}

func putObjectS3(svc S3Client, bucket, key string, data []byte) error {
	_, err := svc.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return err
}
