package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/eloquentai/finchat/internal/faq"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
)

// Similarity thresholds for the vector tier. Scores must strictly
// exceed the bound; FAQ-typed entries clear a lower bar than generic
// documents.
const (
	fintechThreshold  = 0.6
	documentThreshold = 0.7
)

// keywordFloor drops noise matches from the keyword tier.
const keywordFloor = 0.1

// blockSeparator joins context blocks.
const blockSeparator = "\n\n---\n\n"

// FAQTypeFintech marks documents ingested from the FAQ dataset.
const FAQTypeFintech = "fintech"

// VectorSearcher is the primary retrieval tier.
type VectorSearcher interface {
	Available() bool
	Search(ctx context.Context, query string, topK int) ([]knowledge.Match, error)
}

// KeywordSearcher is the fallback tier.
type KeywordSearcher interface {
	Available() bool
	Search(query, category string, topK int) []faq.Match
}

// Result is assembled context for one query. The zero value means no
// relevant knowledge was found.
type Result struct {
	Context    string
	Sources    []string
	Categories []string
}

// Retriever performs two-tier retrieval. Either collaborator may be
// nil or unavailable; Retrieve degrades instead of failing.
type Retriever struct {
	vector  VectorSearcher
	keyword KeywordSearcher
	logger  log.Logger
}

// New creates a Retriever.
func New(vector VectorSearcher, keyword KeywordSearcher, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{vector: vector, keyword: keyword, logger: logger}
}

// Retrieve gathers context for the query. The vector tier is consulted
// first; the keyword tier serves only when vectors are unavailable,
// fail, or return nothing at all. Thresholded-out vector results yield
// an empty Result without falling back.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) Result {
	if topK <= 0 {
		return Result{}
	}

	if r.vector != nil && r.vector.Available() {
		matches, err := r.vector.Search(ctx, query, topK)
		switch {
		case err != nil:
			r.logger.Warn("vector search failed, falling back to keyword index", "error", err)
		case len(matches) > 0:
			return renderVector(matches)
		}
	}

	return r.renderKeyword(query, topK)
}

// renderVector filters matches by similarity threshold and renders the
// survivors into context blocks.
func renderVector(matches []knowledge.Match) Result {
	var blocks, sources, categories []string
	for _, m := range matches {
		if m.Metadata.FAQType == FAQTypeFintech {
			if m.Score <= fintechThreshold {
				continue
			}
			question := m.Metadata.Question
			if question == "" {
				question = m.Title
			}
			answer := m.Metadata.Answer
			if answer == "" {
				answer = m.Content
			}
			category := m.Metadata.Category
			if category == "" {
				category = "General"
			}
			blocks = append(blocks, fmt.Sprintf("Q: %s\n\nA: %s", question, answer))
			sources = append(sources, "FAQ: "+question)
			categories = append(categories, category)
			continue
		}

		if m.Score <= documentThreshold {
			continue
		}
		title := m.Title
		if title == "" {
			title = "Document"
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", title, m.Content))
		sources = append(sources, title)
		categories = append(categories, "Document")
	}
	return assemble(blocks, sources, categories)
}

// renderKeyword serves the fallback tier across the whole corpus.
func (r *Retriever) renderKeyword(query string, topK int) Result {
	if r.keyword == nil || !r.keyword.Available() {
		return Result{}
	}

	var blocks, sources, categories []string
	for _, m := range r.keyword.Search(query, "", topK) {
		if m.Score <= keywordFloor {
			continue
		}
		category := m.Entry.Category
		if category == "" {
			category = "General"
		}
		blocks = append(blocks, m.Content)
		sources = append(sources, m.Title)
		categories = append(categories, category)
	}
	return assemble(blocks, sources, categories)
}

func assemble(blocks, sources, categories []string) Result {
	if len(blocks) == 0 {
		return Result{}
	}
	return Result{
		Context:    strings.Join(blocks, blockSeparator),
		Sources:    sources,
		Categories: dedupe(categories),
	}
}

// dedupe keeps first occurrences, preserving order.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
