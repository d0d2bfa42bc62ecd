// Package api implements the HTTP JSON API for the fintech support
// chatbot.
//
// # Architecture
//
// Requests flow through a middleware stack before reaching handlers:
//
//	Request → Recovery → RequestID → Logging → CORS → SecurityHeaders → RateLimit → Routes
//
// Recovery is outermost so a panic anywhere below it produces a JSON
// 500 instead of a dropped connection. RequestID runs before Logging so
// every access log line carries the request id. Health probes (/health,
// /ready) are routed above the stack and skip it entirely.
//
// # Endpoints
//
// Authentication and sessions:
//
//	POST   /api/v1/auth/login             - Authenticate with email and password
//	POST   /api/v1/auth/anonymous         - Create an anonymous session
//	GET    /api/v1/auth/session           - Inspect the current session
//	POST   /api/v1/auth/logout            - End the current session
//	GET    /api/v1/auth/stats             - Aggregate session statistics
//	GET    /api/v1/auth/demo-credentials  - Demo login credentials
//
// Chat:
//
//	POST   /api/v1/chat/message              - Send a message, receive an AI response
//	GET    /api/v1/chat/conversations/{id}   - Conversation history
//	DELETE /api/v1/chat/conversations/{id}   - Clear a conversation
//	GET    /api/v1/chat/health               - Chat service health
//
// Fintech categories:
//
//	GET    /api/v1/categories                    - List the category taxonomy
//	POST   /api/v1/categories/ask                - Ask within a category
//	GET    /api/v1/categories/{category}/search  - Search FAQs in a category
//	GET    /api/v1/categories/{category}/stats   - Category statistics
//
// Knowledge base documents:
//
//	POST   /api/v1/documents         - Upload a document as JSON
//	POST   /api/v1/documents/file    - Upload a document as a file
//	GET    /api/v1/documents/search  - Semantic search over documents
//	DELETE /api/v1/documents/{id}    - Delete a document
//	GET    /api/v1/documents/health  - Document service health
//
// # Authentication
//
// Endpoints that use sessions read the Authorization header in either
// form:
//
//	Authorization: Bearer <jwt>
//	Authorization: Session <session-id>
//
// Chat and category endpoints create an anonymous session on the fly
// when no valid session is presented, so unauthenticated use works out
// of the box.
//
// # Error Handling
//
// Errors use a consistent JSON envelope:
//
//	{"error": {"code": "invalid_request", "message": "message is required"}}
//
// Codes map to status: invalid_request and invalid_category are 400,
// unauthorized and invalid_credentials 401, not_found 404,
// body_too_large 413, rate_limited 429, service_unavailable 503, and
// internal_error 500. Internal causes are logged, never echoed to the
// client.
package api
