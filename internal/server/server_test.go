package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/metrics"
	"github.com/nao1215/homeowners/internal/report"
	"github.com/prometheus/client_golang/prometheus"
)

// csvData builds file content with one quoted name per line.
func csvData(rows ...string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = `"` + row + `"`
	}
	return strings.Join(lines, "\n")
}

// newUploadRequest builds a multipart upload request. An empty fileName
// omits the file part.
func newUploadRequest(t *testing.T, fileName, content, hasHeader string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if fileName != "" {
		part, err := mw.CreateFormFile(FieldFile, fileName)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if hasHeader != "" {
		if err := mw.WriteField(FieldHasHeader, hasHeader); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// do serves req and decodes the JSON body into v.
func do(t *testing.T, s *Server, req *http.Request, v any) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

// TestUpload tests the upload endpoint.
func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("accepts valid csv with header", func(t *testing.T) {
		t.Parallel()

		content := csvData("Homeowners", "Mr John Smith", "Mrs Faye Hughes-Eastwood", "Dr P. Gunn")
		var resp report.Response
		rec := do(t, New(), newUploadRequest(t, "test.csv", content, "1"), &resp)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if resp.Message != report.MessageSuccess {
			t.Errorf("expected %q, got %q", report.MessageSuccess, resp.Message)
		}
		if len(resp.Data) != 3 {
			t.Errorf("expected 3 people, got %d", len(resp.Data))
		}
		if strings.Contains(rec.Body.String(), `"errors"`) {
			t.Errorf("expected no errors key, got %s", rec.Body.String())
		}
	})

	t.Run("treats the first line as data without header", func(t *testing.T) {
		t.Parallel()

		var resp report.Response
		rec := do(t, New(), newUploadRequest(t, "test.csv", csvData("Mr Tom Staff", "Mrs Jane Smith"), "false"), &resp)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(resp.Data) != 2 {
			t.Errorf("expected 2 people, got %d", len(resp.Data))
		}
	})

	t.Run("returns 207 with row errors", func(t *testing.T) {
		t.Parallel()

		content := csvData("Homeowners", "Invalid Title", "Mr A. Candidate", "Ms Claire Robbo")
		var resp report.Response
		rec := do(t, New(), newUploadRequest(t, "test.csv", content, "true"), &resp)

		if rec.Code != http.StatusMultiStatus {
			t.Fatalf("expected 207, got %d", rec.Code)
		}
		if resp.Message != report.MessagePartial {
			t.Errorf("expected %q, got %q", report.MessagePartial, resp.Message)
		}
		if len(resp.Errors) != 1 {
			t.Fatalf("expected 1 error, got %d", len(resp.Errors))
		}
		if resp.Errors[0].Row != 2 || resp.Errors[0].Input != "Invalid Title" {
			t.Errorf("unexpected row error: %+v", resp.Errors[0])
		}
	})

	t.Run("counts partial success", func(t *testing.T) {
		t.Parallel()

		content := csvData("Mr Valid User", "Invalid Row", "Dr M. McStuffins")
		var resp report.Response
		rec := do(t, New(), newUploadRequest(t, "test.txt", content, "0"), &resp)

		if rec.Code != http.StatusMultiStatus {
			t.Fatalf("expected 207, got %d", rec.Code)
		}
		if resp.ProcessedCount != 2 || resp.ErrorCount != 1 {
			t.Errorf("expected 2/1, got %d/%d", resp.ProcessedCount, resp.ErrorCount)
		}
	})

	t.Run("splits several people in one row", func(t *testing.T) {
		t.Parallel()

		var resp report.Response
		rec := do(t, New(), newUploadRequest(t, "test.csv", csvData("Mr and Mrs Smith", "Dr & Mrs Joe Bloggs"), ""), &resp)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(resp.Data) != 4 {
			t.Errorf("expected 4 people, got %d", len(resp.Data))
		}
	})

	t.Run("rejects other file types", func(t *testing.T) {
		t.Parallel()

		var resp ValidationResponse
		rec := do(t, New(), newUploadRequest(t, "document.pdf", "%PDF-1.4", "1"), &resp)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if len(resp.Errors[FieldFile]) == 0 {
			t.Errorf("expected file validation error, got %+v", resp)
		}
	})

	t.Run("requires a file", func(t *testing.T) {
		t.Parallel()

		var resp ValidationResponse
		rec := do(t, New(), newUploadRequest(t, "", "", "1"), &resp)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if resp.Message != "The file field is required." {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("rejects uploads over the size limit", func(t *testing.T) {
		t.Parallel()

		content := csvData(strings.Repeat("Mr John Smith,", 200))
		rec := do(t, New(WithMaxUploadSize(512)), newUploadRequest(t, "big.csv", content, "1"), nil)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("fails on an empty file", func(t *testing.T) {
		t.Parallel()

		var resp FailureResponse
		rec := do(t, New(), newUploadRequest(t, "test.csv", "", "1"), &resp)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if resp.Message != MessageProcessingFailed || resp.Error == "" {
			t.Errorf("unexpected failure response: %+v", resp)
		}
	})
}

// TestUploadRecordsHistoryAndMetrics tests the optional store and recorder.
func TestUploadRecordsHistoryAndMetrics(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	recorder, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}

	s := New(WithStore(db), WithRecorder(recorder), WithConcurrency(2))

	content := csvData("Mr John Smith", "Invalid Title")
	if rec := do(t, s, newUploadRequest(t, "a.csv", content, "0"), nil); rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", rec.Code)
	}
	if rec := do(t, s, newUploadRequest(t, "b.csv", "", "0"), nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	imports, err := db.ListImports(t.Context(), 10)
	if err != nil {
		t.Fatalf("failed to list imports: %v", err)
	}
	if len(imports) != 1 || imports[0].Source != "a.csv" {
		t.Errorf("expected one saved import of a.csv, got %+v", imports)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`homeowners_import_imports_total{channel="http",status="partial"} 1`,
		`homeowners_import_imports_total{channel="http",status="failed"} 1`,
		`homeowners_import_people_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q, got:\n%s", want, body)
		}
	}
}

// TestHealthAndIndex tests the auxiliary routes.
func TestHealthAndIndex(t *testing.T) {
	t.Parallel()

	s := New()

	t.Run("health returns ok", func(t *testing.T) {
		t.Parallel()

		var got map[string]string
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil), &got)
		if rec.Code != http.StatusOK || got["status"] != "ok" {
			t.Errorf("unexpected health response %d %v", rec.Code, got)
		}
	})

	t.Run("index serves the upload form", func(t *testing.T) {
		t.Parallel()

		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `name="csvHasHeader"`) {
			t.Error("expected upload form")
		}
	})

	t.Run("metrics without recorder is not found", func(t *testing.T) {
		t.Parallel()

		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("upload only accepts POST", func(t *testing.T) {
		t.Parallel()

		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/upload", nil), nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

// TestParseBool tests form boolean parsing.
func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"1", "true", "TRUE", "on", "yes", " Yes "} {
		if !parseBool(v) {
			t.Errorf("expected %q to be true", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "no", "maybe"} {
		if parseBool(v) {
			t.Errorf("expected %q to be false", v)
		}
	}
}

// TestServeShutdown tests graceful shutdown on context cancellation.
func TestServeShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- New(WithShutdownTimeout(time.Second)).Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
