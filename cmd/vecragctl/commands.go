package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vecrag/internal/app"
	"github.com/kailas-cloud/vecrag/internal/config"
	searchuc "github.com/kailas-cloud/vecrag/internal/usecase/search"
	"github.com/kailas-cloud/vecrag/internal/version"
)

// opener builds the pipeline for one command run and returns its cleanup.
type opener func(ctx context.Context, env, configPath string) (*app.App, func(), error)

type cli struct {
	open       opener
	out        io.Writer
	env        string
	configPath string
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out}

	root := &cobra.Command{
		Use:           "vecragctl",
		Short:         "Ingest documents into and query a vecrag index",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.env, "env", "e", config.GetEnv(), "Config environment (config/<env>.yaml)")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Explicit config file path")

	var docID string
	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Chunk, embed and index a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ingest(cmd.Context(), args[0], docID)
		},
	}
	ingestCmd.Flags().StringVar(&docID, "id", "", "Document ID (default: random UUID)")

	var topK int
	queryCmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd.Context(), args[0], topK)
		},
	}
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", searchuc.DefaultTopK, "Number of passages to retrieve")

	deleteCmd := &cobra.Command{
		Use:   "delete <doc_id>",
		Short: "Remove every vector of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.delete(cmd.Context(), args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.list(cmd.Context())
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index size and dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.stats(cmd.Context())
		},
	}

	root.AddCommand(ingestCmd, queryCmd, deleteCmd, listCmd, statsCmd)
	return root
}

func (c *cli) ingest(ctx context.Context, path, docID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%s is not UTF-8 text", path)
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	pipeline, closeFn, err := c.open(ctx, c.env, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	stats, err := pipeline.Documents.ProcessAndIndex(ctx, string(data), docID, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	c.success("Indexed %s", filepath.Base(path))
	c.field("doc_id", docID)
	c.field("chunks", stats.ChunkCount)
	c.field("tokens", stats.TotalTokens)
	c.field("total_vectors", pipeline.Documents.TotalVectors())
	return nil
}

func (c *cli) query(ctx context.Context, question string, topK int) error {
	pipeline, closeFn, err := c.open(ctx, c.env, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	res := pipeline.Search.AnswerQuery(ctx, question, topK)
	if res.Failed {
		return errors.New(res.Answer)
	}

	fmt.Fprintln(c.out, res.Answer)
	if len(res.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(c.out)
	color.New(color.FgCyan, color.Bold).Fprintln(c.out, "Sources:")
	for _, s := range res.Sources {
		fmt.Fprintf(c.out, "  - %s (%s, chunk %d)\n", s.Filename, s.DocID, s.ChunkIndex)
	}
	return nil
}

func (c *cli) delete(ctx context.Context, docID string) error {
	pipeline, closeFn, err := c.open(ctx, c.env, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	removed, err := pipeline.Documents.DeleteDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", docID, err)
	}
	if removed == 0 {
		color.New(color.FgYellow).Fprintf(c.out, "No vectors found for %s\n", docID)
		return nil
	}
	c.success("Deleted %s", docID)
	c.field("removed", removed)
	c.field("total_vectors", pipeline.Documents.TotalVectors())
	return nil
}

func (c *cli) list(ctx context.Context) error {
	pipeline, closeFn, err := c.open(ctx, c.env, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	docs := pipeline.Documents.ListDocuments()
	if len(docs) == 0 {
		color.New(color.FgYellow).Fprintln(c.out, "No documents indexed")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(c.out, "%s  %s  (%d chunks, %d tokens)\n", d.DocID, d.Filename, d.ChunkCount, d.IndexedTokens)
	}
	return nil
}

func (c *cli) stats(ctx context.Context) error {
	pipeline, closeFn, err := c.open(ctx, c.env, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	c.field("total_documents", len(pipeline.Index.Documents()))
	c.field("total_vectors", pipeline.Index.Total())
	c.field("dimension", pipeline.Index.Dimension())
	return nil
}

func (c *cli) success(format string, args ...any) {
	color.New(color.FgGreen, color.Bold).Fprintf(c.out, "✓ "+format+"\n", args...)
}

func (c *cli) field(name string, value any) {
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(c.out, "  %s: ", name)
	fmt.Fprintln(c.out, value)
}
