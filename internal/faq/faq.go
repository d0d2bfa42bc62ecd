// Package faq implements the keyword-scored FAQ index, the retrieval
// fallback used when the vector tier cannot serve.
//
// The index is built offline from the FAQ dataset ([Build]) and stored
// as a JSON file. After [Load] an Index never mutates, so reads need no
// locking. Writes ([Index.Save]) take an exclusive file lock so offline
// rebuilds and a running server do not interleave.
package faq

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gofrs/flock"

	"github.com/eloquentai/finchat/internal/log"
)

// Scoring weights. A query token matching inside a question word counts
// most, an exact keyword hit next, a hit inside an answer word least.
const (
	questionWeight = 2.0
	keywordWeight  = 1.5
	answerWeight   = 1.0
)

// Entry is one FAQ in the index.
type Entry struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// database is the on-disk index layout.
type database struct {
	FAQs          []Entry             `json:"faqs"`
	KeywordIndex  map[string][]string `json:"keyword_index"`
	CategoryIndex map[string][]string `json:"category_index"`
}

// Match is a scored hit. Score is normalized to [0,1].
type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Entry   Entry   `json:"metadata"`
}

// Stats summarizes index contents.
type Stats struct {
	FAQs       int
	Keywords   int
	Categories int
}

// Index is the searchable FAQ database. Methods are nil-safe; a nil
// Index simply reports unavailable and matches nothing.
type Index struct {
	db database
}

// Load reads an index file. A missing or malformed file is an error;
// callers typically log it and run without the fallback tier.
func Load(path string, logger log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading faq index: %w", err)
	}
	var db database
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("parsing faq index: %w", err)
	}

	logger.Info("faq index loaded",
		"path", path,
		"faqs", len(db.FAQs),
		"categories", len(db.CategoryIndex))
	return &Index{db: db}, nil
}

// Save writes the index as indented JSON. An exclusive lock on a
// sibling .lock file serializes concurrent writers, and the content
// lands via temp file plus rename so readers never see a partial index.
func (ix *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking faq index: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(ix.db, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding faq index: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing faq index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing faq index: %w", err)
	}
	return nil
}

// Available reports whether the index holds any entries.
func (ix *Index) Available() bool {
	return ix != nil && len(ix.db.FAQs) > 0
}

// Search scores every candidate FAQ against the whitespace-tokenized
// query and returns up to topK positive matches, best first. Ties keep
// dataset order. A non-empty category restricts candidates to that
// category's entries.
func (ix *Index) Search(query, category string, topK int) []Match {
	if !ix.Available() || topK <= 0 {
		return nil
	}
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}

	candidates := ix.db.FAQs
	if category != "" {
		ids := make(map[string]bool)
		for _, id := range ix.db.CategoryIndex[category] {
			ids[id] = true
		}
		filtered := make([]Entry, 0, len(ids))
		for _, e := range ix.db.FAQs {
			if ids[e.ID] {
				filtered = append(filtered, e)
			}
		}
		candidates = filtered
	}

	var matches []Match
	for _, e := range candidates {
		score := scoreEntry(e, tokens)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			ID:      e.ID,
			Score:   score,
			Title:   "FAQ: " + e.Question,
			Content: fmt.Sprintf("Q: %s\n\nA: %s", e.Question, e.Answer),
			Entry:   e,
		})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Categories lists category labels in first-seen dataset order.
func (ix *Index) Categories() []string {
	if ix == nil {
		return nil
	}
	seen := make(map[string]bool, len(ix.db.CategoryIndex))
	var out []string
	for _, e := range ix.db.FAQs {
		if !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out
}

// Stats reports index sizes.
func (ix *Index) Stats() Stats {
	if ix == nil {
		return Stats{}
	}
	return Stats{
		FAQs:       len(ix.db.FAQs),
		Keywords:   len(ix.db.KeywordIndex),
		Categories: len(ix.db.CategoryIndex),
	}
}

// scoreEntry rates one FAQ against the query tokens. The raw weighted
// sum is normalized by query length and capped at 1.0.
func scoreEntry(e Entry, tokens []string) float64 {
	questionWords := strings.Fields(strings.ToLower(e.Question))
	answerWords := strings.Fields(strings.ToLower(e.Answer))
	keywords := make(map[string]bool, len(e.Keywords))
	for _, k := range e.Keywords {
		keywords[strings.ToLower(k)] = true
	}

	var score float64
	for _, tok := range tokens {
		if anyContains(questionWords, tok) {
			score += questionWeight
		}
		if keywords[tok] {
			score += keywordWeight
		}
		if anyContains(answerWords, tok) {
			score += answerWeight
		}
	}

	return min(score/float64(len(tokens)), 1.0)
}

// anyContains reports whether sub occurs inside any of the words.
func anyContains(words []string, sub string) bool {
	for _, w := range words {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}
