package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/nikogura/resume-analyzer/pkg/logging"
	"github.com/nikogura/resume-analyzer/pkg/pipeline"
	"github.com/pkg/errors"
)

type fakeProcessor struct {
	received events.S3Event
	status   int
}

func (f *fakeProcessor) ProcessS3Event(_ context.Context, event events.S3Event) pipeline.BatchResponse {
	f.received = event
	return pipeline.BatchResponse{StatusCode: f.status, TotalRecords: len(event.Records)}
}

type checkFunc func(context.Context) error

func (f checkFunc) Check(ctx context.Context) error { return f(ctx) }

const sampleEvent = `{
  "Records": [
    {
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "resumes"},
        "object": {"key": "uploads/jane.pdf", "size": 1024, "eTag": "\"abc\""}
      }
    }
  ]
}`

func TestHandleEvents(t *testing.T) {
	proc := &fakeProcessor{status: http.StatusMultiStatus}
	srv := httptest.NewServer(New(proc, nil, logging.Discard()).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(sampleEvent))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		t.Errorf("Expected 207, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}

	var body pipeline.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.TotalRecords != 1 {
		t.Errorf("Expected 1 record, got %d", body.TotalRecords)
	}
	if proc.received.Records[0].S3.Object.Key != "uploads/jane.pdf" {
		t.Errorf("Expected 'uploads/jane.pdf', got '%s'", proc.received.Records[0].S3.Object.Key)
	}
}

func TestHandleEventsKeepsRequestID(t *testing.T) {
	srv := httptest.NewServer(New(&fakeProcessor{status: http.StatusOK}, nil, logging.Discard()).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/events", strings.NewReader(`{"Records":[]}`))
	req.Header.Set(RequestIDHeader, "req-42")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(RequestIDHeader) != "req-42" {
		t.Errorf("Expected 'req-42', got '%s'", resp.Header.Get(RequestIDHeader))
	}
}

func TestHandleEventsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed", body: `{"Records": [`, want: http.StatusBadRequest},
		{name: "too large", body: `{"pad":"` + strings.Repeat("x", MaxEventBytes) + `"}`, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{status: http.StatusOK}
			h := New(proc, nil, logging.Discard()).Handler()

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(tt.body)))

			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
			if proc.received.Records != nil {
				t.Error("Expected processor not to be called")
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Checker
		want   int
	}{
		{name: "no checks", checks: nil, want: http.StatusOK},
		{
			name:   "passing",
			checks: map[string]Checker{"topic": checkFunc(func(context.Context) error { return nil })},
			want:   http.StatusOK,
		},
		{
			name:   "failing",
			checks: map[string]Checker{"topic": checkFunc(func(context.Context) error { return errors.New("unreachable") })},
			want:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeProcessor{}, tt.checks, logging.Discard()).Handler()

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	h := New(&fakeProcessor{}, nil, logging.Discard()).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
