package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rpereza/hydro-back-sub001/config"
)

// mockRoundTripper records PUT requests in place of S3.
type mockRoundTripper struct {
	mu     sync.Mutex
	paths  []string
	bodies [][]byte
	types  []string
	status int
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	m.paths = append(m.paths, req.URL.Path)
	m.bodies = append(m.bodies, body)
	m.types = append(m.types, req.Header.Get("Content-Type"))

	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func newTestArchive(t *testing.T, rt http.RoundTripper) *S3Archive {
	t.Helper()
	cfg := config.ArchiveConfig{
		Bucket:          "ica-archive",
		Region:          "us-east-1",
		Prefix:          "/reports/",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}
	a, err := NewS3Archive(context.Background(), cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.RetryMaxAttempts = 1
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	a.newID = func() string { return "fixed-id" }
	return a
}

func TestNewS3Archive_RequiresBucket(t *testing.T) {
	if _, err := NewS3Archive(context.Background(), config.ArchiveConfig{}); err == nil {
		t.Error("Expected error without bucket")
	}
}

func TestReportKey(t *testing.T) {
	a := newTestArchive(t, &mockRoundTripper{})
	at := time.Date(2025, 3, 14, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	key := a.ReportKey(at)
	// converted to UTC this is 2025-03-15 04:30
	if key != "reports/2025/03/fixed-id.xlsx" {
		t.Errorf("Expected reports/2025/03/fixed-id.xlsx, got %s", key)
	}
}

func TestUpload(t *testing.T) {
	rt := &mockRoundTripper{}
	a := newTestArchive(t, rt)
	payload := []byte("workbook-bytes")

	uri, err := a.Upload(context.Background(), "reports/2025/03/fixed-id.xlsx", payload, ContentTypeXLSX)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if uri != "s3://ica-archive/reports/2025/03/fixed-id.xlsx" {
		t.Errorf("Unexpected URI %s", uri)
	}

	if len(rt.paths) != 1 {
		t.Fatalf("Expected 1 PUT request, got %d", len(rt.paths))
	}
	if rt.paths[0] != "/ica-archive/reports/2025/03/fixed-id.xlsx" {
		t.Errorf("Expected path-style object path, got %s", rt.paths[0])
	}
	if !bytes.Contains(rt.bodies[0], payload) {
		t.Errorf("Expected body to contain payload, got %q", rt.bodies[0])
	}
	if rt.types[0] != ContentTypeXLSX {
		t.Errorf("Expected content type %s, got %s", ContentTypeXLSX, rt.types[0])
	}
}

func TestUpload_Failure(t *testing.T) {
	rt := &mockRoundTripper{status: http.StatusForbidden}
	a := newTestArchive(t, rt)

	_, err := a.Upload(context.Background(), "reports/x.xlsx", []byte("x"), ContentTypeXLSX)
	if err == nil {
		t.Fatal("Expected error for rejected upload")
	}
	if !strings.Contains(err.Error(), "reports/x.xlsx") {
		t.Errorf("Expected error to name the key, got %v", err)
	}
}
