package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// ProcessingID is the first 32 hex characters of the SHA-256 of the object key.
func ProcessingID(key string) (id string) {
	sum := sha256.Sum256([]byte(key))
	id = hex.EncodeToString(sum[:])[:32]
	return id
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with one decimal, e.g. "1.5 MB".
func FormatFileSize(size int64) (formatted string) {
	if size == 0 {
		formatted = "0 B"
		return formatted
	}

	value := float64(size)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}

	formatted = fmt.Sprintf("%.1f %s", value, sizeUnits[i])
	return formatted
}

// logMetrics writes one "processing metrics" line for a stage of a record.
func logMetrics(logger *slog.Logger, rec Record, status string, start, now time.Time, extra ...any) {
	duration := math.Round(now.Sub(start).Seconds()*100) / 100

	attrs := []any{
		"file_size", rec.Size,
		"file_size_formatted", FormatFileSize(rec.Size),
		"status", status,
		"processing_duration_seconds", duration,
	}
	attrs = append(attrs, extra...)

	logger.Info("processing metrics", attrs...)
}
