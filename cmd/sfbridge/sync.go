package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmcallister/sfbridge/internal/catalog"
	"github.com/tmcallister/sfbridge/internal/checkpoint"
	"github.com/tmcallister/sfbridge/internal/config"
	"github.com/tmcallister/sfbridge/internal/engine"
	"github.com/tmcallister/sfbridge/internal/logging"
	"github.com/tmcallister/sfbridge/internal/notion"
	"github.com/tmcallister/sfbridge/internal/salesforce"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one bidirectional sync pass",
	Long: `Run one sync pass over the configured object types, in order.

For each object type:
  1. Resolve (or create) the Notion database
  2. Push Salesforce records modified since the forward mark
  3. Pull Notion entries edited since the reverse mark
  4. Push them back into Salesforce and advance the marks`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSync(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.LogFile, verbose)
	logger.Info("starting sync pass", "objects", cfg.Objects)

	source, err := salesforce.Connect(ctx, salesforce.Config{
		LoginURL:      cfg.Salesforce.LoginURL,
		ClientID:      cfg.Salesforce.ClientID,
		ClientSecret:  cfg.Salesforce.ClientSecret,
		Username:      cfg.Salesforce.Username,
		Password:      cfg.Salesforce.Password,
		SecurityToken: cfg.Salesforce.SecurityToken,
	})
	if err != nil {
		return fmt.Errorf("salesforce login: %w", err)
	}
	logger.Info("logged into Salesforce")

	target := notion.New(cfg.Notion.Token, cfg.Notion.ParentPageID)

	store, closeStore, err := openCheckpoints(ctx, cfg.Checkpoint)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}

	if err := engine.New(source, target, store, cat, logger).SyncAll(ctx, cfg.Objects); err != nil {
		return fmt.Errorf("sync pass finished with errors: %w", err)
	}
	logger.Info("sync pass completed")
	return nil
}

func openCheckpoints(ctx context.Context, cfg config.Checkpoint) (checkpoint.Store, func(), error) {
	switch cfg.Backend {
	case "mongo":
		store, err := checkpoint.ConnectMongo(ctx, cfg.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("checkpoint store: %w", err)
		}
		return store, func() { _ = store.Close(ctx) }, nil
	default:
		store, err := checkpoint.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("checkpoint store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
}
