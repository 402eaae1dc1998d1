package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"callscribe/internal/browser"
	"callscribe/internal/config"
	"callscribe/internal/extract"
	"callscribe/internal/service"
	"callscribe/internal/storage"
)

var (
	configDir string
	v         = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:           "callscribe",
	Short:         "Extract call metadata and transcripts from recorded call pages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "./configs", "directory containing config.yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json|text)")
	bindFlag("LOG_LEVEL", "log-level")
	bindFlag("LOG_FORMAT", "log-format")

	rootCmd.AddCommand(newServeCmd(), newExtractCmd(), newRunsCmd(), newMCPCmd())
}

// bindFlag lets a flag override the config key when it is set.
func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// --- Component Wiring ---

// app holds the components shared by the subcommands.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	journal *storage.BadgerJournal
	svc     *service.Service
}

// loadConfig reads the configuration and builds the logger. Logs go to
// stderr so that commands can print results on stdout.
func loadConfig(vp *viper.Viper) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(vp, configDir)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, cfg.NewLogger(os.Stderr), nil
}

// journalMode selects how newApp opens the journal.
type journalMode int

const (
	journalReadWrite journalMode = iota
	journalReadOnly
)

// newApp opens the journal and builds the extraction service. Commands that
// only list runs open the journal read-only.
func newApp(mode journalMode) (*app, error) {
	cfg, log, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	var journal *storage.BadgerJournal
	if mode == journalReadOnly {
		journal, err = storage.NewBadgerJournalReadOnly(cfg.JournalPath, log)
	} else {
		journal, err = storage.NewBadgerJournal(cfg.JournalPath, cfg.JournalRetention, log)
	}
	if errors.Is(err, storage.ErrLocked) {
		return nil, fmt.Errorf("failed to initialize journal: %w (stop the running serve process or point JOURNAL_PATH elsewhere)", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	launcher := browser.NewRodLauncher(cfg.BrowserOptions(), log)
	engine, err := extract.New(launcher, cfg.ExtractOptions(), log)
	if err != nil {
		if closeErr := journal.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing journal")
		}
		return nil, fmt.Errorf("failed to initialize extraction engine: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		journal: journal,
		svc:     service.New(engine, journal, log),
	}, nil
}

// Close releases the journal.
func (a *app) Close() {
	a.log.Debug("Closing journal...")
	if err := a.journal.Close(); err != nil {
		a.log.WithError(err).Error("Error closing journal")
	}
}
