package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
)

// multipartBody builds a multipart form carrying one file field plus
// optional extra fields, returning the body and its content type.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%q): %v", k, err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing file content: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func TestDocumentUploadUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/documents",
		`{"content":"some text","title":"Note"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	code, message := errorEnvelope(t, rec)
	if code != "service_unavailable" {
		t.Errorf("code = %q", code)
	}
	if message != "Vector store is not configured" {
		t.Errorf("message = %q", message)
	}
}

func TestDocumentUploadEmptyContent(t *testing.T) {
	// An available store still rejects empty content before touching
	// the database.
	h := &documentHandler{
		store:  knowledge.NewStore(new(pgxpool.Pool), stubEmbedder{}, log.NewNop()),
		logger: log.NewNop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents",
		bytes.NewReader([]byte(`{"content":"","title":"Empty"}`)))
	rec := httptest.NewRecorder()
	h.upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	_, message := errorEnvelope(t, rec)
	if message != "content is required" {
		t.Errorf("message = %q", message)
	}
}

func TestDocumentUploadMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/documents", `{oops`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	code, _ := errorEnvelope(t, rec)
	if code != "invalid_request" {
		t.Errorf("code = %q", code)
	}
}

func TestDocumentFileUploadMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	mw.WriteField("title", "No file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/file", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	_, message := errorEnvelope(t, rec)
	if message != "file field is required" {
		t.Errorf("message = %q", message)
	}
}

func TestDocumentFileUploadNotMultipart(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/documents/file",
		`{"content":"json, not multipart"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	_, message := errorEnvelope(t, rec)
	if message != "invalid multipart form" {
		t.Errorf("message = %q", message)
	}
}

func TestDocumentFileUploadNonUTF8(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, "binary.bin", []byte{0xff, 0xfe, 0xfd}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	_, message := errorEnvelope(t, rec)
	if message != "file must be UTF-8 text" {
		t.Errorf("message = %q", message)
	}
}

func TestDocumentFileUploadUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, "notes.txt", []byte("plain text"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestDocumentSearchMissingQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/documents/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	_, message := errorEnvelope(t, rec)
	if message != "query parameter is required" {
		t.Errorf("message = %q", message)
	}
}

func TestDocumentSearchUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/documents/search?query=fees", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestDocumentDeleteUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodDelete, "/api/v1/documents/doc-1", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestDocumentHealth(t *testing.T) {
	t.Run("degraded without store", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/documents/health", "", nil)
		assertHealth(t, rec, "degraded")
	})

	t.Run("healthy with store", func(t *testing.T) {
		h := &documentHandler{
			store:  knowledge.NewStore(new(pgxpool.Pool), stubEmbedder{}, log.NewNop()),
			logger: log.NewNop(),
		}

		rec := httptest.NewRecorder()
		h.health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/health", nil))
		assertHealth(t, rec, "healthy")
	})
}
