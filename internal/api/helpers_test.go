package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/conversation"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
	"github.com/eloquentai/finchat/internal/provider"
	"github.com/eloquentai/finchat/internal/rag"
)

// fakeCompleter stands in for the model provider.
type fakeCompleter struct {
	mu           sync.Mutex
	unavailable  bool
	reply        string
	err          error
	calls        int
	lastMessages []provider.Message
}

func (f *fakeCompleter) Available() bool { return !f.unavailable }

func (f *fakeCompleter) Complete(_ context.Context, messages []provider.Message, _ int, _ float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "stub reply", nil
	}
	return f.reply, nil
}

// fakeRetriever returns a canned retrieval result.
type fakeRetriever struct {
	mu        sync.Mutex
	result    rag.Result
	calls     int
	lastQuery string
	lastTopK  int
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, topK int) rag.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = query
	f.lastTopK = topK
	return f.result
}

// stubEmbedder satisfies knowledge.Embedder for handler wiring that
// never reaches the database.
type stubEmbedder struct{ unavailable bool }

func (e stubEmbedder) Available() bool { return !e.unavailable }

func (e stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

// testDeps exposes the fakes behind a test server so tests can steer
// and inspect them.
type testDeps struct {
	sessions      *auth.Store
	completer     *fakeCompleter
	retriever     *fakeRetriever
	conversations *conversation.MemoryStore
	documents     *knowledge.Store
}

// newTestServer builds a full Server on in-memory stores, a fake model,
// and an unconfigured vector store. The rate limit burst is raised so
// tests never trip it.
func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()

	sessions, err := auth.New([]byte("test-secret"))
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}

	deps := &testDeps{
		sessions:      sessions,
		completer:     &fakeCompleter{},
		retriever:     &fakeRetriever{},
		conversations: conversation.NewMemoryStore(),
		documents:     knowledge.NewStore(nil, nil, log.NewNop()),
	}

	svc, err := chat.New(chat.Config{
		Provider:      deps.completer,
		Retriever:     deps.retriever,
		Conversations: deps.conversations,
		Logger:        log.NewNop(),
	})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}

	srv, err := NewServer(Config{
		Logger:      log.NewNop(),
		Sessions:    sessions,
		Chat:        svc,
		Documents:   deps.documents,
		CORSOrigins: []string{"*"},
		RateBurst:   1000,
		IsDev:       true,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, deps
}

// doRequest runs one request through the handler and returns the
// recorded response. A non-empty body is sent as JSON.
func doRequest(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

// errorEnvelope decodes the error response envelope.
func errorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code, body.Error.Message
}
