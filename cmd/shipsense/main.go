// Package main provides the shipsense CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shipsense/internal/config"
	"shipsense/internal/fleet"
	"shipsense/internal/logging"
	"shipsense/internal/orchestrator"
	"shipsense/internal/session"
)

var (
	verbose    bool
	sourceMode string
	sessionID  string
	catalogArg string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shipsense",
	Short: "shipsense - conversational ship performance assistant",
	Long: `shipsense answers natural language questions about ship performance:
fetch metric trends, summarize them, compare vessels or metrics, and
list the fleet. Data comes from the Toqua Ship Kernels API or from a
built-in physics mock.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The chat UI owns the terminal, so no zap output there.
		if cmd.Use == "shipsense" && cmd.CalledAs() == "shipsense" {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the answer",
	Long: `Processes a single utterance through the full turn pipeline and
prints the response, the chart sketch when one applies, and any
clarification question.

Example:
  shipsense ask "compare speed and fuel for the last week"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var shipsCmd = &cobra.Command{
	Use:   "ships",
	Short: "List the vessels available for queries",
	RunE:  runShips,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show archived turns for the session",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&sourceMode, "source", "", "metric source: mock or rest")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "default", "conversation session ID")
	rootCmd.PersistentFlags().StringVar(&catalogArg, "catalog", "", "path to the vessel catalog YAML")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(shipsCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies CLI flags over the persisted configuration.
func loadConfig() (*config.Config, error) {
	ws, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	logging.Initialize(ws)

	cfg, err := config.Load(filepath.Join(ws, ".shipsense", "config.yaml"))
	if err != nil {
		return nil, err
	}
	if sourceMode != "" {
		cfg.Source.Mode = sourceMode
	}
	if catalogArg != "" {
		cfg.Source.CatalogPath = catalogArg
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSource constructs the metric source for the configured mode.
func buildSource(cfg *config.Config) (fleet.Source, *fleet.MockSource, error) {
	if cfg.Source.Mode == "rest" {
		if cfg.Source.APIKey == "" {
			return nil, nil, fmt.Errorf("rest source requires an API key (set TOQUA_API_KEY)")
		}
		return fleet.NewRESTSource(cfg.Source.BaseURL, cfg.Source.APIKey, cfg.GetSourceTimeout()), nil, nil
	}

	catalog, err := fleet.LoadCatalog(cfg.Source.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	mock := fleet.NewMockSource(catalog)
	return mock, mock, nil
}

// buildOrchestrator wires the full stack from configuration.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, func(), error) {
	src, mock, err := buildSource(cfg)
	if err != nil {
		return nil, nil, err
	}

	var opts []orchestrator.Option
	cleanup := func() {}

	if cfg.Archive.Enabled {
		archive, err := session.OpenArchive(cfg.Archive.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, orchestrator.WithArchive(archive))
		cleanup = func() { archive.Close() }
	}

	if cfg.LLM.Enabled && cfg.LLM.APIKey != "" {
		opts = append(opts, orchestrator.WithInterpreter(orchestrator.NewGeminiInterpreter(
			cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.GetLLMTimeout(),
		)))
	}

	if mock != nil && cfg.Source.WatchCatalog {
		watcher, err := fleet.NewCatalogWatcher(cfg.Source.CatalogPath, mock.SetCatalog)
		if err != nil {
			logging.FleetWarn("catalog watcher unavailable: %v", err)
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			go func() { _ = watcher.Run(ctx) }()
			prev := cleanup
			cleanup = func() { cancel(); prev() }
		}
	}

	return orchestrator.New(cfg, src, opts...), cleanup, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, cleanup, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	utterance := strings.Join(args, " ")
	logger.Info("submitting turn", zap.String("session", sessionID), zap.String("utterance", utterance))

	start := time.Now()
	turn, err := orch.SubmitTurn(ctx, sessionID, utterance)
	if err != nil {
		return err
	}
	logger.Debug("turn complete", zap.Int("seq", turn.Seq), zap.Duration("elapsed", time.Since(start)))

	fmt.Println(turn.Response)
	if turn.Chart != nil {
		fmt.Println()
		fmt.Println(renderChart(turn.Chart, 72))
	}
	return nil
}

func runShips(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, _, err := buildSource(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vessels, err := src.Vessels(ctx)
	if err != nil {
		return err
	}
	for _, v := range vessels {
		fmt.Printf("%-9d %-24s %-14s %.0f DWT\n", v.IMO, v.Name, v.Type, v.DWT)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled {
		return fmt.Errorf("turn archive is disabled (set SHIPSENSE_DB or archive.enabled)")
	}

	archive, err := session.OpenArchive(cfg.Archive.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	turns, err := archive.Turns(sessionID)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Printf("No archived turns for session %q.\n", sessionID)
		return nil
	}
	for _, turn := range turns {
		fmt.Printf("[%s] #%d you: %s\n", turn.CreatedAt.Format("2006-01-02 15:04"), turn.Seq, turn.Utterance)
		fmt.Printf("%*s shipsense: %s\n", 19, "", turn.Response)
	}
	return nil
}
