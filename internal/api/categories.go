package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/log"
)

// categoryHandler holds dependencies for the category endpoints.
type categoryHandler struct {
	svc      *chat.Service
	sessions *auth.Store
	logger   log.Logger
}

// list handles GET /api/v1/categories.
func (h *categoryHandler) list(w http.ResponseWriter, r *http.Request) {
	categories := chat.Categories()
	WriteJSON(w, http.StatusOK, map[string]any{
		"categories":       categories,
		"total_categories": len(categories),
	}, h.logger)
}

// askRequest is the request body for POST /api/v1/categories/ask.
type askRequest struct {
	Question string `json:"question"`
	Category string `json:"category"`
}

// askResponse is the reply for POST /api/v1/categories/ask.
type askResponse struct {
	Answer            string   `json:"answer"`
	Category          string   `json:"category"`
	ConfidenceScore   float64  `json:"confidence_score"`
	Sources           []string `json:"sources"`
	RelatedCategories []string `json:"related_categories"`
	SessionID         string   `json:"session_id"`
}

// ask handles POST /api/v1/categories/ask. Category questions always
// run in the session's own conversation thread.
func (h *categoryHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if !h.writeIfInvalidCategory(w, req.Category) {
		return
	}
	if req.Question == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return
	}

	sess := resolveSession(h.sessions, r, h.logger)
	if sess == nil {
		sess = h.sessions.Create("", nil)
	}

	result, err := h.svc.AskByCategory(r.Context(), req.Question, req.Category, sess.ID)
	if err != nil {
		if errors.Is(err, chat.ErrNotReady) {
			WriteError(w, http.StatusServiceUnavailable, "service_unavailable",
				"Chat service is not properly configured. Please check your API keys.", h.logger)
			return
		}
		h.logger.Error("processing category query", "error", err, "category", req.Category)
		WriteError(w, http.StatusInternalServerError, "internal_error", "error processing category query", h.logger)
		return
	}

	h.sessions.Touch(sess.ID, map[string]any{
		"category_query":   req.Category,
		"new_conversation": true,
	})

	WriteJSON(w, http.StatusOK, askResponse{
		Answer:            result.Answer,
		Category:          result.Category,
		ConfidenceScore:   result.ConfidenceScore,
		Sources:           nonNil(result.Sources),
		RelatedCategories: nonNil(result.RelatedCategories),
		SessionID:         result.ConversationID,
	}, h.logger)
}

// search handles GET /api/v1/categories/{category}/search. Retrieval
// runs with a category-annotated query and the results are filtered to
// sources labeled with the requested category.
func (h *categoryHandler) search(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if !h.writeIfInvalidCategory(w, category) {
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "query parameter is required", h.logger)
		return
	}
	limit := parseIntParam(r, "limit", 5)

	result := h.svc.Retrieve(r.Context(), fmt.Sprintf("Category: %s - %s", category, query), limit)
	filtered := filterByCategory(result.Sources, category)

	results := filtered
	if len(results) > limit {
		results = results[:limit]
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"category":           category,
		"query":              query,
		"results":            nonNil(results),
		"total_found":        len(filtered),
		"context_categories": nonNil(result.Categories),
	}, h.logger)
}

// categoryStatsTopK is the retrieval depth for category statistics.
// Wide enough to cover every FAQ of a category in the curated dataset.
const categoryStatsTopK = 50

// stats handles GET /api/v1/categories/{category}/stats.
func (h *categoryHandler) stats(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if !h.writeIfInvalidCategory(w, category) {
		return
	}

	result := h.svc.Retrieve(r.Context(), "Category: "+category, categoryStatsTopK)
	matching := filterByCategory(result.Sources, category)

	samples := matching
	if len(samples) > 5 {
		samples = samples[:5]
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"category":           category,
		"total_faqs":         len(matching),
		"sample_questions":   nonNil(samples),
		"related_categories": nonNil(result.Categories),
	}, h.logger)
}

// writeIfInvalidCategory validates a category label, writing the 400
// response listing valid labels when it is unknown. Returns false when
// the response has been written.
func (h *categoryHandler) writeIfInvalidCategory(w http.ResponseWriter, category string) bool {
	if chat.ValidCategory(category) {
		return true
	}
	WriteError(w, http.StatusBadRequest, "invalid_category",
		"Invalid category. Valid categories: "+strings.Join(chat.CategoryNames(), ", "), h.logger)
	return false
}

// filterByCategory keeps sources whose label mentions the category,
// case-insensitively.
func filterByCategory(sources []string, category string) []string {
	needle := strings.ToLower(category)
	var filtered []string
	for _, source := range sources {
		if strings.Contains(strings.ToLower(source), needle) {
			filtered = append(filtered, source)
		}
	}
	return filtered
}
