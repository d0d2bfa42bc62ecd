package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/conversation"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
	"github.com/eloquentai/finchat/internal/rag"
)

func TestChatMessage(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.completer.reply = "A routing number identifies your bank."
	deps.retriever.result = rag.Result{
		Context:    "Q: What is a routing number?\n\nA: It identifies your bank.",
		Sources:    []string{"FAQ: What is a routing number?"},
		Categories: []string{"Account & Registration"},
	}

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/chat/message",
		`{"message":"What is a routing number?"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatMessageResponse
	decodeBody(t, rec, &resp)
	if resp.Response != "A routing number identifies your bank." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id empty")
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "FAQ: What is a routing number?" {
		t.Errorf("sources = %v", resp.Sources)
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", resp.Timestamp, err)
	}

	// The exchange landed in the conversation log.
	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/chat/conversations/"+resp.ConversationID, "", nil)
	var hist struct {
		ConversationID string                 `json:"conversation_id"`
		Messages       []conversation.Message `json:"messages"`
	}
	decodeBody(t, rec, &hist)
	if len(hist.Messages) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist.Messages))
	}
	if hist.Messages[0].Role != conversation.RoleUser || hist.Messages[1].Role != conversation.RoleAssistant {
		t.Errorf("history roles = %v, %v", hist.Messages[0].Role, hist.Messages[1].Role)
	}
}

func TestChatMessageEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/chat/message", `{"message":""}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	code, message := errorEnvelope(t, rec)
	if code != "invalid_request" {
		t.Errorf("code = %q", code)
	}
	if message != "message is required" {
		t.Errorf("message = %q", message)
	}
}

func TestChatMessageModelUnavailable(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.completer.unavailable = true

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/chat/message",
		`{"message":"hello"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	code, message := errorEnvelope(t, rec)
	if code != "service_unavailable" {
		t.Errorf("code = %q", code)
	}
	if message != "Chat service is not properly configured. Please check your API keys." {
		t.Errorf("message = %q", message)
	}
	if deps.completer.calls != 0 {
		t.Errorf("model called %d times while unavailable", deps.completer.calls)
	}
}

func TestChatMessageSessionThread(t *testing.T) {
	srv, _ := newTestServer(t)
	sessionID, token := createAnonymousSession(t, srv)
	authz := map[string]string{"Authorization": "Bearer " + token}

	// Without an explicit conversation_id the session id is the thread.
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/chat/message",
		`{"message":"first"}`, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatMessageResponse
	decodeBody(t, rec, &resp)
	if resp.ConversationID != sessionID {
		t.Errorf("conversation_id = %q, want session id %q", resp.ConversationID, sessionID)
	}

	// Continuing the default thread is not a new conversation.
	stats := sessionStats(t, srv, token)
	if stats.ConversationCount != 0 {
		t.Errorf("conversation_count = %d, want 0", stats.ConversationCount)
	}

	// An explicit conversation_id starts a separate thread and counts.
	rec = doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/chat/message",
		`{"message":"second","conversation_id":"side-thread"}`, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &resp)
	if resp.ConversationID != "side-thread" {
		t.Errorf("conversation_id = %q, want side-thread", resp.ConversationID)
	}

	stats = sessionStats(t, srv, token)
	if stats.ConversationCount != 1 {
		t.Errorf("conversation_count = %d, want 1", stats.ConversationCount)
	}
}

func TestChatConversationUnknown(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/chat/conversations/nope", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		ConversationID string                 `json:"conversation_id"`
		Messages       []conversation.Message `json:"messages"`
	}
	decodeBody(t, rec, &resp)
	if resp.ConversationID != "nope" {
		t.Errorf("conversation_id = %q", resp.ConversationID)
	}
	if resp.Messages == nil || len(resp.Messages) != 0 {
		t.Errorf("messages = %v, want empty array", resp.Messages)
	}
}

func TestChatDeleteConversation(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.conversations.Append("conv-1", conversation.RoleUser, "hello")

	rec := doRequest(t, srv.Handler(), http.MethodDelete, "/api/v1/chat/conversations/conv-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["message"] != "Conversation cleared successfully" {
		t.Errorf("message = %q", resp["message"])
	}

	// Deleting again reports the miss without erroring.
	rec = doRequest(t, srv.Handler(), http.MethodDelete, "/api/v1/chat/conversations/conv-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	decodeBody(t, rec, &resp)
	if resp["message"] != "Conversation not found" {
		t.Errorf("message = %q", resp["message"])
	}
}

func TestChatHealth(t *testing.T) {
	t.Run("degraded without vector store", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/chat/health", "", nil)
		assertHealth(t, rec, "degraded")
	})

	t.Run("unhealthy without model", func(t *testing.T) {
		srv, deps := newTestServer(t)
		deps.completer.unavailable = true

		rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/chat/health", "", nil)
		assertHealth(t, rec, "unhealthy")
	})

	t.Run("healthy with model and vector store", func(t *testing.T) {
		svc, err := chat.New(chat.Config{
			Provider:      &fakeCompleter{},
			Retriever:     &fakeRetriever{},
			Conversations: conversation.NewMemoryStore(),
		})
		if err != nil {
			t.Fatalf("chat.New: %v", err)
		}
		// The health check only consults availability, so a blank pool
		// is enough to mark the vector tier up.
		h := &chatHandler{
			svc:    svc,
			vector: knowledge.NewStore(new(pgxpool.Pool), stubEmbedder{}, log.NewNop()),
			logger: log.NewNop(),
		}

		rec := httptest.NewRecorder()
		h.health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/chat/health", nil))
		assertHealth(t, rec, "healthy")
	})
}

func assertHealth(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["status"] != want {
		t.Errorf("status = %q, want %q", resp["status"], want)
	}
	if resp["message"] == "" {
		t.Error("message empty")
	}
}

// sessionStats fetches GET /api/v1/auth/session for the token.
func sessionStats(t *testing.T, srv *Server, token string) sessionStatsView {
	t.Helper()
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/auth/session", "",
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("session stats status = %d: %s", rec.Code, rec.Body.String())
	}
	var stats sessionStatsView
	decodeBody(t, rec, &stats)
	return stats
}

type sessionStatsView struct {
	SessionID         string `json:"session_id"`
	ConversationCount int    `json:"conversation_count"`
}
