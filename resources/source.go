package resources

import (
	"errors"
	"os"
	"path/filepath"
)

// ByteSource loads a whole location into memory and writes memory back out
// to a location. Bytes returned by Read stay valid until Close.
type ByteSource interface {
	Read(path string) ([]byte, error)
	Write(data []byte, path string) error
	Close() error
}

// Source is the ByteSource for local paths, `s3://` URIs and http(s) URLs.
// A Source is meant to be owned by a single task; the S3 client it holds may
// be shared.
type Source struct {
	s3c      S3Client
	httpAuth string
	releases []func() error
}

// NewSource
// Creates a Source. s3c may be nil when no S3 locations are used.
func NewSource(s3c S3Client) *Source {
	return &Source{
		s3c:      s3c,
		httpAuth: os.Getenv(HTTPTokenEnv),
	}
}

var errNoS3Client = errors.New("no S3 client configured")

func (src *Source) Read(path string) ([]byte, error) {
	var data []byte
	var err error
	switch {
	case IsS3URI(path):
		data, err = src.readS3(path)
	case isValidUrl(path):
		data, err = src.readHTTP(path)
	default:
		return src.readLocal(path)
	}
	if err != nil {
		return nil, &IOError{"read", path, err}
	}
	return data, nil
}

func (src *Source) readLocal(path string) ([]byte, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, &IOError{"read", path, openErr}
	}
	stat, statErr := file.Stat()
	if statErr != nil {
		file.Close()
		return nil, &IOError{"read", path, statErr}
	}
	if stat.IsDir() {
		file.Close()
		return nil, &IOError{"read", path, errors.New("is a directory")}
	}
	// Zero-length files cannot be mapped.
	if stat.Size() == 0 {
		file.Close()
		return []byte{}, nil
	}
	data, release, mmapErr := readMmap(file)
	if mmapErr != nil {
		file.Close()
		return nil, &IOError{"mmap", path, mmapErr}
	}
	src.releases = append(src.releases, func() error {
		unmapErr := release()
		closeErr := file.Close()
		if unmapErr != nil {
			return unmapErr
		}
		return closeErr
	})
	return data, nil
}

func (src *Source) readS3(path string) ([]byte, error) {
	if src.s3c == nil {
		return nil, errNoS3Client
	}
	bucket, key, err := ParseS3URI(path)
	if err != nil {
		return nil, err
	}
	return fetchObjectS3(src.s3c, bucket, key)
}

func (src *Source) readHTTP(path string) ([]byte, error) {
	body, size, err := FetchHTTP(path, src.httpAuth)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return readAllCounted(path, body, size)
}

// Write stores data at path, creating parent directories for local paths.
// http(s) locations are read-only.
func (src *Source) Write(data []byte, path string) error {
	switch {
	case IsS3URI(path):
		if src.s3c == nil {
			return &IOError{"write", path, errNoS3Client}
		}
		bucket, key, err := ParseS3URI(path)
		if err != nil {
			return &IOError{"write", path, err}
		}
		if err := putObjectS3(src.s3c, bucket, key, data); err != nil {
			return &IOError{"write", path, err}
		}
		return nil
	case isValidUrl(path):
		return &IOError{"write", path,
			errors.New("http locations are read-only")}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &IOError{"write", path, err}
		}
	}
	outFile, err := os.OpenFile(path, os.O_TRUNC|os.O_RDWR|os.O_CREATE,
		0644)
	if err != nil {
		return &IOError{"write", path, err}
	}
	if _, writeErr := outFile.Write(data); writeErr != nil {
		outFile.Close()
		return &IOError{"write", path, writeErr}
	}
	if closeErr := outFile.Close(); closeErr != nil {
		return &IOError{"write", path, closeErr}
	}
	return nil
}

// Close releases every mapping handed out by Read.
func (src *Source) Close() error {
	var firstErr error
	for _, release := range src.releases {
		if err := release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	src.releases = nil
	return firstErr
}
