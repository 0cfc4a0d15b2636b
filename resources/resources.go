package resources

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
)

// HTTPTokenEnv names the environment variable holding an optional bearer
// token for http(s) shard locations.
const HTTPTokenEnv = "TOKEN_HISTOGRAM_HTTP_TOKEN"

// WriteCounter counts the number of bytes written to it, and every 10 seconds,
// it prints a message reporting the number of bytes written so far.
type WriteCounter struct {
	Total    uint64
	Last     time.Time
	Reported bool
	Path     string
	Size     uint64
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if time.Since(wc.Last).Seconds() > 10 {
		wc.Reported = true
		wc.Last = time.Now()
		if wc.Size > 0 {
			log.Printf("Fetching %s... %s / %s completed.",
				wc.Path, humanize.Bytes(wc.Total), humanize.Bytes(wc.Size))
		} else {
			log.Printf("Fetching %s... %s completed.",
				wc.Path, humanize.Bytes(wc.Total))
		}
	}
	return n, nil
}

// readAllCounted drains a remote body into memory, reporting progress on
// large transfers. size may be zero or negative when unknown.
func readAllCounted(path string, body io.Reader, size int64) ([]byte,
	error) {
	buf := bytes.NewBuffer(nil)
	if size > 0 {
		buf.Grow(int(size))
	}
	counter := &WriteCounter{
		Last: time.Now(),
		Path: path,
	}
	if size > 0 {
		counter.Size = uint64(size)
	}
	if _, err := io.Copy(buf, io.TeeReader(body, counter)); err != nil {
		return nil, err
	}
	if counter.Reported {
		log.Printf("Fetched %s... %s completed.", path,
			humanize.Bytes(counter.Total))
	}
	return buf.Bytes(), nil
}

func isValidUrl(toTest string) bool {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return false
	}

	u, err := url.Parse(toTest)
	if err != nil || u.Host == "" {
		return false
	}

	return u.Scheme == "http" || u.Scheme == "https"
}

// FetchHTTP
// Fetch a resource from a remote HTTP server with optional bearer token
// auth. Returns the body and the advertised content length, -1 if unknown.
func FetchHTTP(uri string, auth string) (io.ReadCloser, int64, error) {
	req, reqErr := http.NewRequest("GET", uri, nil)
	if reqErr != nil {
		return nil, 0, reqErr
	}
	if auth != "" {
		req.Header.Add("Authorization", "Bearer "+auth)
	}
	resp, remoteErr := http.DefaultClient.Do(req)
	if remoteErr != nil {
		return nil, 0, remoteErr
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, errors.New(fmt.Sprintf("HTTP status code %d",
			resp.StatusCode))
	}
	return resp.Body, resp.ContentLength, nil
}
