package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/mailresponder/internal/llm"
	"github.com/teemow/mailresponder/internal/logging"
	"github.com/teemow/mailresponder/internal/memory"
)

// MemoryStats is the output of "memory stats".
type MemoryStats struct {
	Backend    string `json:"backend"`
	Entries    int    `json:"entries"`
	EmbedModel string `json:"embed_model"`
}

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect the reply feedback memory",
		Long: `Inspect the feedback memory that informs future drafts. Every refined
reply stores its feedback together with the original draft.`,
	}

	cmd.AddCommand(newMemorySearchCmd())
	cmd.AddCommand(newMemoryStatsCmd())
	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find stored feedback similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			query := strings.Join(args, " ")

			return withMemory(cmd.Context(), func(ctx context.Context, mem *memory.Memory, _ string) error {
				matches, err := mem.RetrieveSimilar(ctx, query, limit)
				if err != nil {
					return err
				}
				if matches == nil {
					matches = []memory.Match{}
				}
				return printJSON(cmd, matches)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", memory.DefaultRetrieveCount, "Maximum number of results")
	return cmd
}

func newMemoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the feedback memory backend and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMemory(cmd.Context(), func(ctx context.Context, mem *memory.Memory, embedModel string) error {
				n, err := mem.Count(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, MemoryStats{Backend: mem.Backend(), Entries: n, EmbedModel: embedModel})
			})
		},
	}
}

// withMemory opens the configured feedback memory for the duration of fn.
func withMemory(ctx context.Context, fn func(ctx context.Context, mem *memory.Memory, embedModel string) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ollama, err := llm.NewOllama(llm.OllamaConfig{
		Host:       cfg.LLM.Host,
		EmbedModel: cfg.LLM.EmbedModel,
		Timeout:    cfg.LLM.Timeout,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	mem, err := openMemory(ctx, cfg, ollama, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := mem.Close(); err != nil {
			logger.Warn("failed to close feedback memory", logging.Err(err))
		}
	}()

	return fn(ctx, mem, ollama.Model())
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
