package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagefy-edu/sagefy/internal/app"
	"github.com/sagefy-edu/sagefy/internal/config"
	"github.com/sagefy-edu/sagefy/internal/ingest"
)

var flagIngestClass string

var ingestCmd = &cobra.Command{
	Use:   "ingest [flags] <file>...",
	Short: "Index course material files into the vector store",
	Long: `Ingest extracts text from the given files (PDF, DOCX, TXT or
Markdown), chunks it and writes the embedded chunks to the vector store.

Re-ingesting a file replaces its previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(args)
	},
}

func runIngest(paths []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	docs := make([]ingest.RawDocument, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		docs = append(docs, ingest.RawDocument{
			Name:      filepath.Base(p),
			Data:      data,
			ClassCode: flagIngestClass,
		})
	}

	ok := a.Pipeline.IngestAll(ctx, docs)
	logger.Info("ingestion finished", "indexed", ok, "failed", len(docs)-ok)
	if ok < len(docs) {
		return fmt.Errorf("%d of %d files failed", len(docs)-ok, len(docs))
	}
	return nil
}

func init() {
	ingestCmd.Flags().StringVar(&flagIngestClass, "class", "", "class code owning the material (empty for shared material)")
	rootCmd.AddCommand(ingestCmd)
}
