package pipeline

import (
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// Record is one uploaded object to process.
type Record struct {
	Bucket    string
	Key       string
	Size      int64
	ETag      string
	EventName string
	EventTime time.Time
}

// RecordFromS3 converts an S3 notification record. Keys arrive form-encoded and are decoded here.
func RecordFromS3(r events.S3EventRecord) (rec Record, err error) {
	if r.S3.Bucket.Name == "" || r.S3.Object.Key == "" {
		err = errors.Errorf("invalid S3 record format: missing bucket or object key (event %s)", r.EventName)
		return rec, err
	}

	var key string
	key, err = url.QueryUnescape(r.S3.Object.Key)
	if err != nil {
		err = errors.Wrapf(err, "invalid S3 object key: %s", r.S3.Object.Key)
		return rec, err
	}

	rec = Record{
		Bucket:    r.S3.Bucket.Name,
		Key:       key,
		Size:      r.S3.Object.Size,
		ETag:      strings.Trim(r.S3.Object.ETag, `"`),
		EventName: r.EventName,
		EventTime: r.EventTime,
	}
	return rec, err
}

// IsObjectCreated reports whether the record announces a new object.
func (r Record) IsObjectCreated() (created bool) {
	created = strings.HasPrefix(r.EventName, "ObjectCreated")
	return created
}
