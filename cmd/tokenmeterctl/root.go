package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/config"
	"github.com/kailas-cloud/tokenmeter/internal/db"
	"github.com/kailas-cloud/tokenmeter/internal/db/dbopen"
	logpkg "github.com/kailas-cloud/tokenmeter/internal/logger"
	settingsrepo "github.com/kailas-cloud/tokenmeter/internal/repository/settings"
	usagerepo "github.com/kailas-cloud/tokenmeter/internal/repository/usage"
	"github.com/kailas-cloud/tokenmeter/internal/version"
)

var (
	// Global flags
	cfgFile string
	envName string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tokenmeterctl",
	Short: "Administer the tokenmeter usage store",
	Long: `tokenmeterctl operates directly on the store used by the tokenmeter server:
  - run the daily and monthly usage resets by hand
  - inspect per-caller usage
  - apply a settings document (limits, API key, provider overlay)`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (default: $ENV or local)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// session bundles what a subcommand needs from the store.
type session struct {
	cfg      config.Config
	store    db.Store
	settings *settingsrepo.Repo
	usage    *usagerepo.Repo
	logger   *zap.Logger
}

func (s *session) Close() {
	s.store.Close()
	_ = s.logger.Sync()
}

func loadConfig() (config.Config, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}
	if cfgFile != "" {
		cfg, err := config.LoadFile(cfgFile)
		return cfg, env, err
	}
	cfg, err := config.Load(env)
	return cfg, env, err
}

// openSession loads config, connects to the store and builds the repositories.
func openSession(ctx context.Context) (*session, error) {
	cfg, env, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(loggerEnv(env), level)
	if err != nil {
		return nil, err
	}

	store, err := dbopen.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	return &session{
		cfg:      cfg,
		store:    store,
		settings: settingsrepo.New(store, cfg.Storage.KeyPrefix),
		usage:    usagerepo.New(store, cfg.Storage.KeyPrefix),
		logger:   logger,
	}, nil
}

// loggerEnv maps unknown environments to the console encoder.
func loggerEnv(env string) string {
	if env == "prod" {
		return env
	}
	return "local"
}
