package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/shelfimport/internal/config"
	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
	"github.com/lehigh-university-libraries/shelfimport/internal/storage"
)

func NewRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "shelfimport",
		Short: "Reconcile spreadsheet book imports against a classroom library",
		Long: `Shelfimport compares a batch of imported book records against the books already
in the library, flags exact matches, likely duplicates and metadata conflicts, and
applies a reviewer's decisions as one batch of creates and updates.

It can run as a CLI or serve the same preview/confirm flow over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return config.Init(v, configFile)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (yaml, toml or json)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	cmd.PersistentFlags().String("db", "", "Path to the SQLite library database (empty keeps the library in memory)")
	cmd.PersistentFlags().Float64("threshold", reconcile.DefaultThreshold, "Minimum similarity score for a possible match")
	cmd.PersistentFlags().String("scorer", "token", "Similarity scorer for possible matches (token, edit)")
	cmd.PersistentFlags().Duration("store-timeout", reconcile.DefaultStoreTimeout, "Timeout for each store call")
	cmd.PersistentFlags().Int("write-concurrency", reconcile.DefaultWriteConcurrency, "Maximum concurrent store writes during confirm")

	_ = v.BindPFlag(config.KeyDB, cmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag(config.KeyThreshold, cmd.PersistentFlags().Lookup("threshold"))
	_ = v.BindPFlag(config.KeyScorer, cmd.PersistentFlags().Lookup("scorer"))
	_ = v.BindPFlag(config.KeyStoreTimeout, cmd.PersistentFlags().Lookup("store-timeout"))
	_ = v.BindPFlag(config.KeyWriteConcurrency, cmd.PersistentFlags().Lookup("write-concurrency"))

	// Add subcommands
	cmd.AddCommand(newServeCmd(v))
	cmd.AddCommand(newImportCmd(v))
	cmd.AddCommand(newBooksCmd(v))

	return cmd
}

// openEngine resolves configuration and opens the store and engine. The
// caller must close the returned store.
func openEngine(ctx context.Context, v *viper.Viper) (*reconcile.Engine, storage.Store, *config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, nil, err
	}

	scorer, err := reconcile.ScorerByName(cfg.Scorer)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open library store: %w", err)
	}

	engine := reconcile.NewEngine(
		store,
		reconcile.NewClassifier(cfg.Threshold, scorer),
		reconcile.NewApplier(cfg.StoreTimeout, cfg.WriteConcurrency),
	)

	slog.Debug("Engine ready",
		"db", cfg.DBPath,
		"threshold", cfg.Threshold,
		"scorer", cfg.Scorer,
		"store_timeout", cfg.StoreTimeout,
		"write_concurrency", cfg.WriteConcurrency)

	return engine, store, cfg, nil
}
