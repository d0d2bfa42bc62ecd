package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownCategory indicates a category label outside the supported
// taxonomy. Returned before any retrieval or model call happens.
var ErrUnknownCategory = errors.New("unknown category")

// Category is one entry of the fixed support taxonomy.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// categories is the taxonomy in display order. The labels are part of
// the API contract and also appear verbatim in FAQ metadata, which is
// what confidence scoring and related-category detection match against.
var categories = []Category{
	{
		Name:        "Account & Registration",
		Description: "Questions about creating accounts, verification, and profile management",
	},
	{
		Name:        "Payments & Transactions",
		Description: "Questions about transfers, limits, fees, and transaction processing",
	},
	{
		Name:        "Security & Fraud Prevention",
		Description: "Questions about account security, fraud protection, and safety measures",
	},
	{
		Name:        "Regulations & Compliance",
		Description: "Questions about FDIC insurance, regulations, and compliance requirements",
	},
	{
		Name:        "Technical Support & Troubleshooting",
		Description: "Questions about app issues, login problems, and technical assistance",
	},
}

// Categories returns the supported categories in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

// CategoryNames returns just the labels, in display order.
func CategoryNames() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}

// ValidCategory reports whether name is a supported category label.
// Matching is exact.
func ValidCategory(name string) bool {
	return slices.ContainsFunc(categories, func(c Category) bool {
		return c.Name == name
	})
}

// CategoryAnswer is the reply to a category-scoped question.
type CategoryAnswer struct {
	Answer            string
	Category          string
	ConfidenceScore   float64
	Sources           []string
	RelatedCategories []string
	ConversationID    string
}

// AskByCategory answers a question scoped to one category. The query
// sent to retrieval and the model carries a "[Category: ...]"
// annotation so category-relevant FAQs rank higher. The reply is
// scored for how well the cited sources match the requested category.
func (s *Service) AskByCategory(ctx context.Context, question, category, conversationID string) (CategoryAnswer, error) {
	if !ValidCategory(category) {
		return CategoryAnswer{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	enhanced := fmt.Sprintf("[Category: %s] %s", category, question)
	ans, err := s.Answer(ctx, enhanced, conversationID)
	if err != nil {
		return CategoryAnswer{}, err
	}

	return CategoryAnswer{
		Answer:            ans.Response,
		Category:          category,
		ConfidenceScore:   ConfidenceScore(ans.Sources, category),
		Sources:           ans.Sources,
		RelatedCategories: RelatedCategories(category, ans.Sources),
		ConversationID:    ans.ConversationID,
	}, nil
}

// ConfidenceScore measures how much of the cited material belongs to
// the requested category: the fraction of source labels containing the
// category name (case-insensitive), with a 0.1 bonus when at least 3
// sources were cited and at least 2 match. Capped at 1.0; no sources
// means 0.0.
func ConfidenceScore(sources []string, category string) float64 {
	if len(sources) == 0 {
		return 0.0
	}

	needle := strings.ToLower(category)
	matches := 0
	for _, source := range sources {
		if strings.Contains(strings.ToLower(source), needle) {
			matches++
		}
	}

	score := float64(matches) / float64(len(sources))
	if len(sources) >= 3 && matches >= 2 {
		score += 0.1
	}
	return min(score, 1.0)
}

// RelatedCategories lists up to 3 other categories that the cited
// sources touch, in taxonomy order.
func RelatedCategories(current string, sources []string) []string {
	var related []string
	for _, c := range categories {
		if c.Name == current {
			continue
		}
		needle := strings.ToLower(c.Name)
		for _, source := range sources {
			if strings.Contains(strings.ToLower(source), needle) {
				related = append(related, c.Name)
				break
			}
		}
	}
	if len(related) > 3 {
		related = related[:3]
	}
	return related
}
