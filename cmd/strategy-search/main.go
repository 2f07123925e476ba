// Package main provides the strategy search CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/config"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/dataprovider"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/database"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/logger"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/metrics"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/repository"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/search"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	appLogger  *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	store      repository.Store
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(reportCmd)
}

var rootCmd = &cobra.Command{
	Use:   "strategy-search",
	Short: "Autonomous betting strategy search",
	Long: `Runs random search over strategy hyperparameters, validating each
configuration with walk-forward backtesting and Monte Carlo simulation.`,
	Version: fmt.Sprintf("%s (%s)", Version, GitCommit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a new search session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		orchestrator, params, err := buildOrchestrator()
		if err != nil {
			return err
		}

		session, err := orchestrator.Run(ctx, params)
		if err != nil {
			if session != nil {
				appLogger.WithField("session_id", session.ID).
					Warn("session interrupted, resume with: strategy-search resume " + session.ID)
			}
			return err
		}
		return printReport(ctx, session.ID)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume an interrupted search session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		orchestrator, _, err := buildOrchestrator()
		if err != nil {
			return err
		}

		session, err := orchestrator.Resume(ctx, args[0], cfg.Search.MCSimulations, cfg.Search.EarlyStopThreshold)
		if err != nil {
			return err
		}
		return printReport(ctx, session.ID)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the report of a finished session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printReport(cmd.Context(), args[0])
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func setupDependencies(ctx context.Context) error {
	appLogger = logger.NewFromConfig(cfg.Logging)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	db, err = database.NewDB(connectCtx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(connectCtx); err != nil {
		return err
	}
	store = repository.NewPostgresStore(db)

	if cfg.Metrics.Enabled {
		startMetricsServer()
	}

	return nil
}

func buildOrchestrator() (*search.Orchestrator, search.Params, error) {
	dateFrom, err := cfg.Search.ParsedDateFrom()
	if err != nil {
		return nil, search.Params{}, err
	}
	dateTo, err := cfg.Search.ParsedDateTo()
	if err != nil {
		return nil, search.Params{}, err
	}

	var events dataprovider.EventSource = dataprovider.NewPostgresEventSource(db)
	if ttl := cfg.Search.EventCacheTTL; ttl > 0 {
		events = dataprovider.NewCachedEventSource(events, time.Duration(ttl)*time.Second)
	}

	rules := dataprovider.NewPostgresRuleProvider(db)
	runner := search.NewTrialRunner(rules, appLogger)
	orchestrator := search.NewOrchestrator(runner, store, events, appLogger)

	params := search.Params{
		DateFrom:           dateFrom,
		DateTo:             dateTo,
		NTrials:            cfg.Search.NTrials,
		InitialBankroll:    cfg.Search.InitialBankroll,
		MCSimulations:      cfg.Search.MCSimulations,
		RandomSeed:         cfg.Search.RandomSeed,
		EarlyStopThreshold: cfg.Search.EarlyStopThreshold,
	}
	return orchestrator, params, nil
}

func printReport(ctx context.Context, sessionID string) error {
	reporter := search.NewReporter(store)
	summary, err := reporter.Generate(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Println(search.FormatReport(summary))
	return nil
}

func startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Error("metrics server stopped")
		}
	}()
	appLogger.WithField("addr", addr).Info("metrics server listening")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}
