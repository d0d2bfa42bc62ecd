package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eloquentai/finchat/internal/faq"
)

func newIndexCmd() *cobra.Command {
	var datasetPath, outPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the keyword fallback index",
		Long: `Index builds the keyword search index from the source FAQ dataset. The
server loads this file at startup and serves retrieval from it whenever
the vector store is unavailable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(datasetPath, outPath)
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", defaultDatasetPath, "path to the FAQ dataset file")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (default: the configured faq.index_path)")
	return cmd
}

func runIndex(datasetPath, outPath string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = cfg.FAQ.IndexPath
	}

	ds, err := faq.LoadDataset(datasetPath)
	if err != nil {
		return err
	}
	if len(ds.FintechFAQs) == 0 {
		return fmt.Errorf("no FAQs found in %s", datasetPath)
	}

	idx := faq.Build(ds)
	if err := idx.Save(outPath); err != nil {
		return err
	}

	st := idx.Stats()
	logger.Info("faq index built",
		"path", outPath,
		"faqs", st.FAQs,
		"keywords", st.Keywords,
		"categories", st.Categories,
	)
	return nil
}
