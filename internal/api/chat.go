package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/conversation"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
)

// chatHandler holds dependencies for the chat endpoints.
type chatHandler struct {
	svc      *chat.Service
	sessions *auth.Store
	vector   *knowledge.Store
	logger   log.Logger
}

// chatMessageRequest is the request body for POST /api/v1/chat/message.
type chatMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// chatMessageResponse is the reply for POST /api/v1/chat/message.
type chatMessageResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id"`
	Sources        []string `json:"sources"`
	Timestamp      string   `json:"timestamp"`
}

// message handles POST /api/v1/chat/message. Unauthenticated callers
// get a fresh anonymous session; the conversation defaults to the
// session id so follow-up messages without an explicit conversation_id
// continue the same thread.
func (h *chatHandler) message(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if !h.svc.Available() {
		WriteError(w, http.StatusServiceUnavailable, "service_unavailable",
			"Chat service is not properly configured. Please check your API keys.", h.logger)
		return
	}

	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "message is required", h.logger)
		return
	}

	sess := resolveSession(h.sessions, r, h.logger)
	if sess == nil {
		sess = h.sessions.Create("", nil)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = sess.ID
	}

	result, err := h.svc.Answer(r.Context(), req.Message, conversationID)
	if err != nil {
		if errors.Is(err, chat.ErrNotReady) {
			WriteError(w, http.StatusServiceUnavailable, "service_unavailable",
				"Chat service is not properly configured. Please check your API keys.", h.logger)
			return
		}
		h.logger.Error("generating response", "error", err, "conversation_id", conversationID)
		WriteError(w, http.StatusInternalServerError, "internal_error", "error processing message", h.logger)
		return
	}

	h.sessions.Touch(sess.ID, map[string]any{
		"new_conversation": conversationID != sess.ID,
	})

	WriteJSON(w, http.StatusOK, chatMessageResponse{
		Response:       result.Response,
		ConversationID: result.ConversationID,
		Sources:        nonNil(result.Sources),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, h.logger)
}

// conversation handles GET /api/v1/chat/conversations/{id}.
func (h *chatHandler) conversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	history := h.svc.History(id)
	if history == nil {
		history = []conversation.Message{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"messages":        history,
	}, h.logger)
}

// deleteConversation handles DELETE /api/v1/chat/conversations/{id}.
// Always 200: the outcome is reported in the message, matching the
// idempotent delete semantics of the session endpoints.
func (h *chatHandler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	message := "Conversation cleared successfully"
	if !h.svc.ClearConversation(id) {
		message = "Conversation not found"
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": message}, h.logger)
}

// health handles GET /api/v1/chat/health. Reports the two-tier state:
// healthy (model + vector store), degraded (model only), unhealthy
// (no model).
func (h *chatHandler) health(w http.ResponseWriter, r *http.Request) {
	chatAvailable := h.svc.Available()
	vectorAvailable := h.vector != nil && h.vector.Available()

	var status, message string
	switch {
	case chatAvailable && vectorAvailable:
		status = "healthy"
		message = "Chat service is running with full RAG capabilities"
	case chatAvailable:
		status = "degraded"
		message = "Chat service is running but RAG capabilities are disabled (vector store not configured)"
	default:
		status = "unhealthy"
		message = "Chat service is not properly configured (missing API keys)"
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"message": message,
	}, h.logger)
}
