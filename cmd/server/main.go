package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agpsystems/agp/internal/config"
	"github.com/agpsystems/agp/internal/controllers"
	"github.com/agpsystems/agp/internal/crypto"
	"github.com/agpsystems/agp/internal/logger"
	"github.com/agpsystems/agp/internal/models"
	"github.com/agpsystems/agp/internal/services"
)

var (
	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer

	// analyze flags
	analyzeMode   string
	analyzeOutput string

	// history flags
	historyLimit  int
	historyUnseal bool
)

var rootCmd = &cobra.Command{
	Use:   "agp",
	Short: "America's Got Problems analyzer service",
	Long: `agp serves the publication landing page and the node-gate analysis API.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		log, logCloser, err = logger.New(logger.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	RunE: runServeCmd,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServeCmd,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input...]",
	Short: "Run the analyzer locally and print the result envelope",
	Long: `Joins the arguments with spaces and runs them through the analyzer.

Example:
  agp analyze --mode advanced --output yaml "Hello world"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply journal migrations and exit",
	RunE:  runMigrate,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent journal entries",
	RunE:  runHistory,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Run one retention pass over the journal and exit",
	RunE:  runPrune,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a fresh base64 key for JOURNAL_SEAL_KEY",
	Args:  cobra.NoArgs,
	// needs no configuration, so it works before .env exists
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeKey(cmd.OutOrStdout())
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeMode, "mode", "m", "standard", "analysis mode: standard, advanced or minimal")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "json", "output format: json or yaml")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", controllers.DefaultHistoryLimit, "number of entries to show")
	historyCmd.Flags().BoolVar(&historyUnseal, "unseal", false, "decrypt stored inputs with JOURNAL_SEAL_KEY")

	rootCmd.AddCommand(serveCmd, analyzeCmd, migrateCmd, historyCmd, pruneCmd, keygenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, log)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	analyzer := services.NewAnalyzer(cfg.API.Version)

	res, err := analyzer.Analyze(services.NewAnalysisRequest(strings.Join(args, " "), analyzeMode))
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), analyzeOutput, res)
}

func writeResult(w io.Writer, format string, res *services.AnalysisResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

func openJournal(ctx context.Context) (models.Journal, error) {
	return models.OpenJournal(ctx, journalConfig(cfg))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	switch cfg.Journal.Driver {
	case models.DriverSQLite, models.DriverPostgres:
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "journal driver %q has no migrations\n", cfg.Journal.Driver)
		return nil
	}

	// OpenJournal applies pending migrations
	journal, err := openJournal(cmd.Context())
	if err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	defer journal.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "journal migrations applied (%s)\n", cfg.Journal.Driver)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	var sealer *crypto.Encryptor
	if historyUnseal {
		var err error
		sealer, err = crypto.NewEncryptorFromBase64(cfg.Journal.SealKey)
		if err != nil {
			return err
		}
		if sealer == nil {
			return fmt.Errorf("--unseal needs JOURNAL_SEAL_KEY")
		}
	}

	journal, err := openJournal(cmd.Context())
	if err != nil {
		return err
	}
	defer journal.Close()

	entries, err := journal.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	return printHistory(cmd.OutOrStdout(), entries, sealer)
}

func printHistory(w io.Writer, entries []*models.JournalEntry, sealer *crypto.Encryptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tROUTE\tMODE\tSTATUS\tLENGTH\tDETAIL")

	for _, e := range entries {
		detail := e.Error
		if sealer != nil && e.SealedInput != "" {
			plain, err := sealer.Decrypt(e.SealedInput)
			if err != nil {
				detail = "<" + err.Error() + ">"
			} else {
				detail = fmt.Sprintf("%q", plain)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Route, e.Mode, e.Status, e.InputLength, detail)
	}

	return tw.Flush()
}

func writeKey(w io.Writer) error {
	key, err := crypto.GenerateKeyBase64()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "JOURNAL_SEAL_KEY=%s\n", key)
	return err
}

func runPrune(cmd *cobra.Command, args []string) error {
	journal, err := openJournal(cmd.Context())
	if err != nil {
		return err
	}
	defer journal.Close()

	pruner := services.NewPruner(cmd.Context(), journal, cfg.Journal.Retention, cfg.Journal.PruneSchedule, log)
	removed, err := pruner.PruneOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("prune journal: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
	return nil
}
