package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eloquentai/finchat/internal/app"
	"github.com/eloquentai/finchat/internal/faq"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/rag"
)

// defaultDatasetPath locates the source FAQ dataset.
const defaultDatasetPath = "data/fintech_faqs.json"

func newLoadCmd() *cobra.Command {
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Embed the FAQ dataset into the vector store",
		Long: `Load reads the source FAQ dataset, embeds every entry and upserts it
into the PostgreSQL vector store. Document ids are positional (faq_001,
faq_002, ...) so reloading updates entries in place instead of
duplicating them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), datasetPath)
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", defaultDatasetPath, "path to the FAQ dataset file")
	return cmd
}

func runLoad(ctx context.Context, datasetPath string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	if !a.Knowledge.Available() {
		return errors.New("vector store unavailable: set DATABASE_URL and OPENAI_API_KEY")
	}

	ds, err := faq.LoadDataset(datasetPath)
	if err != nil {
		return err
	}
	if len(ds.FintechFAQs) == 0 {
		return fmt.Errorf("no FAQs found in %s", datasetPath)
	}

	logger.Info("loading FAQ dataset into vector store",
		"path", datasetPath, "faqs", len(ds.FintechFAQs))

	source := filepath.Base(datasetPath)
	var stored, failed int
	for i, src := range ds.FintechFAQs {
		doc := knowledge.Document{
			ID:    fmt.Sprintf("faq_%03d", i+1),
			Title: "FAQ: " + src.Question,
			Content: fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nKeywords: %s",
				src.Question, src.Answer, strings.Join(src.Keywords, ", ")),
			Metadata: knowledge.Metadata{
				Category: src.Category,
				Question: src.Question,
				Answer:   src.Answer,
				Keywords: src.Keywords,
				FAQType:  rag.FAQTypeFintech,
				Source:   source,
			},
		}

		id, err := a.Knowledge.Upsert(ctx, doc)
		if err != nil {
			logger.Error("storing FAQ failed",
				"id", doc.ID, "question", src.Question, "error", err)
			failed++
			continue
		}
		logger.Info("FAQ stored", "id", id, "question", src.Question)
		stored++
	}

	logger.Info("FAQ load finished",
		"stored", stored, "failed", failed, "total", len(ds.FintechFAQs))
	if stored == 0 {
		return errors.New("no FAQs were stored")
	}
	return nil
}
