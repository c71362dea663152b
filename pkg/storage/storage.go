// Package storage downloads resume files.
package storage

import (
	"context"
	"strconv"

	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/pkg/errors"
)

// Fetch failure kinds. Errors returned by fetchers match one of these with errors.Is.
var (
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("access denied")
	ErrTooLarge     = errors.New("object too large")
	ErrEmpty        = errors.New("object is empty")
	ErrTransient    = errors.New("storage request failed")
)

// Fetcher downloads one object.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) (content []byte, err error)
}

// fetchError builds a storage_error around sentinel. The cause's text is kept in the chain.
func fetchError(sentinel, cause error, message, bucket, key, code string, size int64) (err error) {
	inner := sentinel
	if cause != nil {
		inner = errors.Wrap(sentinel, cause.Error())
	}

	ctx := map[string]string{
		"bucket": bucket,
		"key":    key,
	}
	if code != "" {
		ctx["error_code"] = code
	}
	if size > 0 {
		ctx["size"] = strconv.FormatInt(size, 10)
	}

	err = procerr.Wrap(procerr.KindStorage, inner, message, ctx)
	return err
}
