package api

import "net/http"

// health is the liveness probe for Docker/Kubernetes.
// Returns 200 OK with {"status":"ok"}.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// ready is the readiness probe. Degraded tiers do not fail readiness:
// the process is ready as soon as it accepts traffic. Per-service
// health lives under /api/v1/chat/health and /api/v1/documents/health.
func (s *Server) ready(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"services": map[string]string{
			"chat":         availability(s.chat.Available()),
			"vector_store": availability(s.documents.Available()),
		},
	}, s.logger)
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "degraded"
}
