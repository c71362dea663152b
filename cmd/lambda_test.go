package cmd

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/nikogura/resume-analyzer/pkg/logging"
	"github.com/nikogura/resume-analyzer/pkg/notify"
	"github.com/nikogura/resume-analyzer/pkg/pipeline"
)

func TestLambdaHandler(t *testing.T) {
	logger := logging.Discard()
	ctx := context.Background()

	var buf bytes.Buffer
	a, err := newApp(ctx, config.Default(), logger, appOptions{localRoot: t.TempDir(), events: &buf})
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	handler := lambdaHandler(a, logger)

	resp, err := handler(ctx, events.S3Event{})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.TotalRecords != 0 {
		t.Errorf("Expected 200 with no records, got %d with %d", resp.StatusCode, resp.TotalRecords)
	}

	resp, err = handler(ctx, events.S3Event{Records: []events.S3EventRecord{
		{
			EventName: "ObjectCreated:Put",
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: "resumes"},
				Object: events.S3Object{Key: "uploads/missing.pdf", Size: 10},
			},
		},
	}})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}
	if len(resp.Results) != 1 || resp.Results[0].Status != pipeline.StatusFailed {
		t.Errorf("Expected one failed result, got %+v", resp.Results)
	}
	if !strings.Contains(buf.String(), notify.EventError) {
		t.Errorf("Expected '%s' event to be written, got '%s'", notify.EventError, buf.String())
	}
}
