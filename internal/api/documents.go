package api

import (
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
)

// maxUploadBytes caps document file uploads.
const maxUploadBytes = 10 << 20

// documentHandler holds dependencies for the document endpoints.
type documentHandler struct {
	store  *knowledge.Store
	logger log.Logger
}

// uploadRequest is the request body for POST /api/v1/documents.
type uploadRequest struct {
	Content  string             `json:"content"`
	Title    string             `json:"title"`
	Metadata knowledge.Metadata `json:"metadata"`
}

// upload handles POST /api/v1/documents.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	id, err := h.store.Upsert(r.Context(), knowledge.Document{
		Title:    req.Title,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.writeStoreError(w, err, "uploading document")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "Document uploaded successfully",
		"document_id": id,
	}, h.logger)
}

// uploadFile handles POST /api/v1/documents/file: a multipart upload of
// a UTF-8 text file. The title falls back to the filename; filename and
// content type are preserved as metadata.
func (h *documentHandler) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "file too large", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "file field is required", h.logger)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading upload", "error", err, "filename", header.Filename)
		WriteError(w, http.StatusInternalServerError, "internal_error", "error reading file", h.logger)
		return
	}
	if !utf8.Valid(content) {
		WriteError(w, http.StatusBadRequest, "invalid_request", "file must be UTF-8 text", h.logger)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	if title == "" {
		title = "Untitled Document"
	}

	id, err := h.store.Upsert(r.Context(), knowledge.Document{
		Title:   title,
		Content: string(content),
		Metadata: knowledge.Metadata{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		},
	})
	if err != nil {
		h.writeStoreError(w, err, "uploading file")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "File uploaded successfully",
		"document_id": id,
		"filename":    header.Filename,
	}, h.logger)
}

// search handles GET /api/v1/documents/search.
func (h *documentHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "query parameter is required", h.logger)
		return
	}
	topK := parseIntParam(r, "top_k", 5)

	matches, err := h.store.Search(r.Context(), query, topK)
	if err != nil {
		h.writeStoreError(w, err, "searching documents")
		return
	}
	if matches == nil {
		matches = []knowledge.Match{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": matches,
		"count":   len(matches),
	}, h.logger)
}

// delete handles DELETE /api/v1/documents/{id}.
func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "deleting document")
		return
	}
	if !deleted {
		WriteError(w, http.StatusNotFound, "not_found", "document not found", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"}, h.logger)
}

// health handles GET /api/v1/documents/health.
func (h *documentHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.store.Available() {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"message": "Documents service is running",
		}, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "degraded",
		"message": "Vector store not configured, document operations are disabled",
	}, h.logger)
}

// writeStoreError maps vector store errors to responses: unavailability
// is a configuration condition (503), empty content a validation error
// (400), everything else an internal failure.
func (h *documentHandler) writeStoreError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, knowledge.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "service_unavailable",
			"Vector store is not configured", h.logger)
	case errors.Is(err, knowledge.ErrEmptyContent):
		WriteError(w, http.StatusBadRequest, "invalid_request", "content is required", h.logger)
	default:
		h.logger.Error(action, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "error "+action, h.logger)
	}
}
