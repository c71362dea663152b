package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Open reads a resume from a file path or an http(s) URL. name is the base name used to
// pick the extraction format.
func Open(ctx context.Context, input string, maxSize int64) (content []byte, name string, err error) {
	parsedURL, urlErr := url.Parse(input)
	if urlErr == nil && (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") {
		name = path.Base(parsedURL.Path)
		content, err = fetchFromURL(ctx, input, maxSize)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch resume from URL: %s", input)
			return content, name, err
		}
		return content, name, err
	}

	name = filepath.Base(input)
	content, err = fetchFromFile(input, maxSize)
	if err != nil {
		err = errors.Wrapf(err, "failed to read resume file: %s", input)
		return content, name, err
	}

	return content, name, err
}

// fetchFromFile reads a resume from disk.
func fetchFromFile(p string, maxSize int64) (content []byte, err error) {
	var info os.FileInfo
	info, err = os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Wrap(ErrNotFound, err.Error())
			return content, err
		}
		err = errors.Wrapf(err, "failed to stat file: %s", p)
		return content, err
	}

	if info.Size() > maxSize {
		err = errors.Wrapf(ErrTooLarge, "file size %d bytes exceeds maximum %d bytes", info.Size(), maxSize)
		return content, err
	}

	content, err = os.ReadFile(p)
	if err != nil {
		err = errors.Wrapf(err, "failed to read file: %s", p)
		return content, err
	}

	if len(content) == 0 {
		err = ErrEmpty
		return content, err
	}

	return content, err
}

// fetchFromURL downloads a resume over HTTP.
func fetchFromURL(ctx context.Context, urlStr string, maxSize int64) (content []byte, err error) {
	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return content, err
	}

	req.Header.Set("User-Agent", "resume-analyzer/1.0")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	var resp *http.Response
	resp, err = client.Do(req)
	if err != nil {
		err = errors.Wrap(ErrTransient, err.Error())
		return content, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		err = errors.Wrapf(ErrNotFound, "HTTP status %d", resp.StatusCode)
		return content, err
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		err = errors.Wrapf(ErrAccessDenied, "HTTP status %d", resp.StatusCode)
		return content, err
	case resp.StatusCode != http.StatusOK:
		err = errors.Wrapf(ErrTransient, "HTTP request failed with status: %d", resp.StatusCode)
		return content, err
	}

	content, err = io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return content, err
	}

	if int64(len(content)) > maxSize {
		err = errors.Wrapf(ErrTooLarge, "response exceeds maximum %d bytes", maxSize)
		content = nil
		return content, err
	}

	if len(content) == 0 {
		err = ErrEmpty
		return content, err
	}

	return content, err
}

// DirFetcher serves objects from a local directory laid out as <root>/<bucket>/<key>.
// It stands in for S3 when replaying saved events.
type DirFetcher struct {
	root    string
	maxSize int64
}

// NewDirFetcher creates a fetcher rooted at root.
func NewDirFetcher(root string, maxSize int64) (f *DirFetcher) {
	f = &DirFetcher{
		root:    root,
		maxSize: maxSize,
	}
	return f
}

// Fetch reads <root>/<bucket>/<key>. Keys that escape the bucket directory are rejected.
func (f *DirFetcher) Fetch(_ context.Context, bucket, key string) (content []byte, err error) {
	bucketDir := filepath.Join(f.root, bucket)
	p := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, bucketDir+string(filepath.Separator)) {
		err = fetchError(ErrAccessDenied, nil, fmt.Sprintf("Key escapes bucket directory: %s", key), bucket, key, "", 0)
		return content, err
	}

	content, err = fetchFromFile(p, f.maxSize)
	if err != nil {
		sentinel := ErrTransient
		for _, candidate := range []error{ErrNotFound, ErrTooLarge, ErrEmpty} {
			if errors.Is(err, candidate) {
				sentinel = candidate
				break
			}
		}
		err = fetchError(sentinel, err, fmt.Sprintf("Failed to read %s/%s", bucket, key), bucket, key, "", 0)
		return content, err
	}

	return content, err
}
