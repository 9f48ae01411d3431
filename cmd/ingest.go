package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/courtsideai/courtside/internal/app"
	"github.com/courtsideai/courtside/internal/config"
	"github.com/courtsideai/courtside/internal/knowledge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <chunks.json>",
	Short: "Load knowledge base passages from a JSON file",
	Long: `Ingest reads a JSON array of passages and upserts each into the
knowledge base, embedding the content on the way in. Re-running with the
same ids replaces content and embeddings, so the command is safe to
repeat after editing the source file.

The expected shape:

  [
    {"id": "rinck-3.2-1", "content": "...", "metadata": {"section": "3.2"}}
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runIngest(args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// ingestChunk is the file format of one passage.
type ingestChunk struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// parseChunks decodes and validates the ingest file contents.
func parseChunks(data []byte) ([]ingestChunk, error) {
	var chunks []ingestChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parsing chunks: %w", err)
	}
	for i, c := range chunks {
		if c.ID == "" {
			return nil, fmt.Errorf("chunk %d: id must not be empty", i)
		}
		if strings.TrimSpace(c.Content) == "" {
			return nil, fmt.Errorf("chunk %q: content must not be empty", c.ID)
		}
	}
	return chunks, nil
}

func runIngest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	chunks, err := parseChunks(data)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%s contains no chunks", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingest interrupted after %d of %d chunks: %w", i, len(chunks), err)
		}
		err := a.Knowledge.Add(ctx, knowledge.Chunk{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
		})
		if err != nil {
			return fmt.Errorf("ingesting chunk %q: %w", c.ID, err)
		}
		logger.Debug("chunk ingested", "id", c.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(chunks)))
	}

	logger.Info("ingest complete", "chunks", len(chunks), "file", path)
	return nil
}
