package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/eloquentai/finchat/internal/log"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Embedder produces the vectors stored alongside documents. Available
// reports whether embedding calls can succeed at all, so the store can
// declare the whole vector tier down before attempting any.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Available() bool
}

// Sentinel errors for vector index operations.
var (
	// ErrUnavailable indicates the vector tier cannot serve: no
	// database connection or no configured embedder.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrEmptyContent indicates a document with no content to embed.
	ErrEmptyContent = errors.New("document content is required")
)

const upsertDocumentSQL = `INSERT INTO documents (id, title, content, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET title = EXCLUDED.title,
	    content = EXCLUDED.content,
	    metadata = EXCLUDED.metadata,
	    embedding = EXCLUDED.embedding,
	    updated_at = now()`

const searchDocumentsSQL = `SELECT id, title, content, metadata, 1 - (embedding <=> $1) AS score
	FROM documents
	ORDER BY embedding <=> $1
	LIMIT $2`

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

// DefaultTopK bounds result sets when callers pass no limit.
const DefaultTopK = 5

// Store manages documents in PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       querier
	embedder Embedder
	logger   log.Logger
}

// NewStore creates a Store. A nil pool or embedder leaves the store
// unavailable rather than failing; callers gate on [Store.Available].
func NewStore(pool *pgxpool.Pool, embedder Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Store{embedder: embedder, logger: logger}
	if pool != nil {
		s.db = pool
	}
	return s
}

// Available reports whether vector search can serve: a live database
// connection and an available embedder.
func (s *Store) Available() bool {
	return s.db != nil && s.embedder != nil && s.embedder.Available()
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	raw, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(raw) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding response")
	}
	return pgvector.NewVector(raw), nil
}

// Upsert embeds the document content and inserts or replaces the row.
// A document without an ID gets a fresh uuid. Returns the stored id.
func (s *Store) Upsert(ctx context.Context, doc Document) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	if doc.Content == "" {
		return "", ErrEmptyContent
	}

	vec, err := s.embed(ctx, doc.Content)
	if err != nil {
		return "", err
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.db.Exec(ctx, upsertDocumentSQL, id, doc.Title, doc.Content, doc.Metadata, vec); err != nil {
		return "", fmt.Errorf("upserting document: %w", err)
	}

	s.logger.Debug("document upserted", "id", id, "title", doc.Title)
	return id, nil
}

// Search embeds the query and returns up to topK documents ordered by
// cosine similarity descending.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.db.Query(ctx, searchDocumentsSQL, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Delete removes a document and reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if !s.Available() {
		return false, ErrUnavailable
	}

	tag, err := s.db.Exec(ctx, deleteDocumentSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanMatches reads Match structs from pgx.Rows.
func scanMatches(rows pgx.Rows) ([]Match, error) {
	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Title, &m.Content, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return matches, nil
}
