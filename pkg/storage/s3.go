package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

// S3API is the part of the S3 client the fetcher uses.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher checks object metadata, then downloads the body with a size limit.
type S3Fetcher struct {
	client  S3API
	maxSize int64
	logger  *slog.Logger
}

// NewS3Fetcher creates a fetcher that rejects objects larger than maxSize.
func NewS3Fetcher(client S3API, maxSize int64, logger *slog.Logger) (f *S3Fetcher) {
	if logger == nil {
		logger = slog.Default()
	}
	f = &S3Fetcher{
		client:  client,
		maxSize: maxSize,
		logger:  logger,
	}
	return f
}

// Fetch downloads bucket/key.
func (f *S3Fetcher) Fetch(ctx context.Context, bucket, key string) (content []byte, err error) {
	var head *s3.HeadObjectOutput
	head, err = f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classify(err, "Failed to access S3 file metadata", bucket, key)
		return content, err
	}

	size := aws.ToInt64(head.ContentLength)
	if size > f.maxSize {
		err = fetchError(ErrTooLarge, nil,
			fmt.Sprintf("File size %d bytes exceeds maximum %d bytes for download", size, f.maxSize),
			bucket, key, "", size)
		return content, err
	}

	f.logger.Info("downloading file", "bucket", bucket, "file_key", key, "size", size)

	var obj *s3.GetObjectOutput
	obj, err = f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classify(err, "Failed to download file from S3", bucket, key)
		return content, err
	}
	defer obj.Body.Close()

	content, err = io.ReadAll(io.LimitReader(obj.Body, f.maxSize+1))
	if err != nil {
		err = fetchError(ErrTransient, err, "Failed to read S3 object body", bucket, key, "", 0)
		return content, err
	}

	if int64(len(content)) > f.maxSize {
		err = fetchError(ErrTooLarge, nil,
			fmt.Sprintf("Downloaded file size exceeds maximum %d bytes", f.maxSize),
			bucket, key, "", int64(len(content)))
		content = nil
		return content, err
	}

	if len(content) == 0 {
		err = fetchError(ErrEmpty, nil, fmt.Sprintf("Downloaded file is empty: %s/%s", bucket, key), bucket, key, "", 0)
		return content, err
	}

	f.logger.Info("downloaded file", "bucket", bucket, "file_key", key, "bytes", len(content))

	return content, err
}

// classify maps an S3 API error onto the fetch sentinels by its error code.
func classify(apiErr error, message, bucket, key string) (err error) {
	code := "Unknown"
	var ae smithy.APIError
	if errors.As(apiErr, &ae) {
		code = ae.ErrorCode()
	}

	switch code {
	case "NotFound", "NoSuchKey", "NoSuchBucket":
		err = fetchError(ErrNotFound, apiErr, fmt.Sprintf("File not found in S3: %s/%s", bucket, key), bucket, key, code, 0)
	case "Forbidden", "AccessDenied":
		err = fetchError(ErrAccessDenied, apiErr, fmt.Sprintf("Access denied to S3 file: %s/%s", bucket, key), bucket, key, code, 0)
	default:
		err = fetchError(ErrTransient, apiErr, message, bucket, key, code, 0)
	}
	return err
}
