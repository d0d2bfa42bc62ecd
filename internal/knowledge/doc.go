// Package knowledge provides the vector-backed document index.
//
// Documents are embedded on write and searched by cosine similarity
// against a query embedding, backed by PostgreSQL with the pgvector
// extension. This is the first retrieval tier; when it is unavailable
// (no database or no embedder) callers fall back to the keyword index.
//
// # Store operations
//
//	Upsert(ctx, doc)          - embed content, insert or replace by id
//	Search(ctx, query, topK)  - ranked matches with similarity scores
//	Delete(ctx, id)           - remove a document
//	Available()               - whether the vector tier can serve
//
// Document ids are caller-supplied strings; stable ids make dataset
// reloads idempotent. A document upserted without an id gets a fresh
// uuid.
//
// # Schema
//
//	documents:
//	    id          TEXT PRIMARY KEY
//	    title       TEXT
//	    content     TEXT NOT NULL
//	    metadata    JSONB
//	    embedding   vector(1536)
//	    created_at  TIMESTAMPTZ
//	    updated_at  TIMESTAMPTZ
//
// Embeddings are 1536-dimensional, matching text-embedding-ada-002.
package knowledge
