package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/docqa/internal/app"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/eval"
	"github.com/dgallion1/docqa/internal/ledger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	logger  *slog.Logger
	verbose bool
	topK    int
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about a document and evaluate the answers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
	root.PersistentFlags().IntVarP(&topK, "top-k", "k", 0, "chunks to retrieve (default TOP_K)")

	root.AddCommand(askCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(retrievalCmd())
	root.AddCommand(evalCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(qaLogCmd())
	root.AddCommand(feedbackCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment. Commands that never call the model
// validate against the keyless ollama provider so no API key is needed.
func loadConfig(needsModel bool) (config.Config, error) {
	cfg := config.Load()
	if topK > 0 {
		cfg.TopK = topK
	}
	check := cfg
	if !needsModel {
		check.LLMProvider = "ollama"
	}
	if err := check.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <document> <question>",
		Short: "Answer one question from a document and record it in the ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			cfg.LoadLedgerOnStart = true
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.IngestFile(ctx, args[0]); err != nil {
				return err
			}
			ans, err := a.Engine.Ask(ctx, args[1])
			if err != nil {
				return err
			}
			if err := a.Ledger.Save(ctx); err != nil {
				return err
			}
			return printJSON(map[string]any{
				"record_id": ans.RecordID,
				"answer":    ans.Text,
				"page":      ans.Page,
			})
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <document> <query>",
		Short: "Show the top ranked chunks for a query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			r, err := app.IndexFile(cfg, args[0])
			if err != nil {
				return err
			}
			return printJSON(r.Search(args[1], cfg.TopK))
		},
	}
}

func retrievalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrieval <document> <cases.yaml>",
		Short: "Measure how often the top chunk comes from the expected page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			cases, err := eval.LoadCases(args[1])
			if err != nil {
				return err
			}
			r, err := app.IndexFile(cfg, args[0])
			if err != nil {
				return err
			}
			report, err := eval.RetrievalAccuracy(eval.FromRetriever(r), cases, cfg.TopK)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "retrieval accuracy: %d/%d (%.2f)\n", report.Correct, report.Total, report.Accuracy)
			return printJSON(report)
		},
	}
}

func evalCmd() *cobra.Command {
	var noContext bool
	cmd := &cobra.Command{
		Use:   "eval <document> <cases.yaml>",
		Short: "Score generated answers against reference answers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			cases, err := eval.LoadCases(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// Evaluation never records answers, so the ledger stays unloaded.
			cfg.LoadLedgerOnStart = false
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.IngestFile(ctx, args[0]); err != nil {
				return err
			}
			report, err := eval.Run(ctx, a.Engine, cases, eval.Options{WithContext: !noContext, TopK: cfg.TopK})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "scored %d, failed %d: similarity %.4f bleu %.4f rouge-l %.4f\n",
				report.Scored, report.Failed, report.Average.Similarity, report.Average.BLEU, report.Average.RougeL)
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&noContext, "no-context", false, "zero-shot baseline without retrieved context")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the feedback counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return printJSON(l.Stats())
		},
	}
}

func qaLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qa-log",
		Short: "Print every recorded question and answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			_, records := l.Snapshot()
			return printJSON(records)
		},
	}
}

func feedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <record-id> <yes|no>",
		Short: "Rate a recorded answer as correct or incorrect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := ledger.ParseVerdict(args[1])
			if err != nil {
				return err
			}
			l, closeFn, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := l.ApplyFeedback(cmd.Context(), args[0], v); err != nil {
				return err
			}
			return printJSON(l.Stats())
		},
	}
}

func openLedger(cmd *cobra.Command) (*ledger.Ledger, func() error, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, nil, err
	}
	return app.OpenLedger(cmd.Context(), cfg, logger)
}
