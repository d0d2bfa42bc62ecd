package faq

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Dataset is the source FAQ collection format.
type Dataset struct {
	FintechFAQs []SourceFAQ `json:"fintech_faqs"`
}

// SourceFAQ is one FAQ as it appears in the source dataset.
type SourceFAQ struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// LoadDataset reads a source dataset file.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading faq dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parsing faq dataset: %w", err)
	}
	return ds, nil
}

// Build constructs a searchable index from the source dataset. Entry
// ids are positional (faq_001, faq_002, ...) so a rebuilt index keeps
// stable identity across runs. The keyword index covers the curated
// keywords plus every question and answer word longer than two
// characters, lowercased.
func Build(ds Dataset) *Index {
	db := database{
		KeywordIndex:  make(map[string][]string),
		CategoryIndex: make(map[string][]string),
	}

	for i, src := range ds.FintechFAQs {
		entry := Entry{
			ID:       fmt.Sprintf("faq_%03d", i+1),
			Category: src.Category,
			Question: src.Question,
			Answer:   src.Answer,
			Keywords: src.Keywords,
		}
		db.FAQs = append(db.FAQs, entry)

		words := append([]string{}, src.Keywords...)
		words = append(words, strings.Fields(strings.ToLower(src.Question))...)
		words = append(words, strings.Fields(strings.ToLower(src.Answer))...)

		seen := make(map[string]bool, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if len(w) <= 2 || seen[w] {
				continue
			}
			seen[w] = true
			db.KeywordIndex[w] = append(db.KeywordIndex[w], entry.ID)
		}

		db.CategoryIndex[src.Category] = append(db.CategoryIndex[src.Category], entry.ID)
	}

	return &Index{db: db}
}
