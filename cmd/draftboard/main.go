package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/draftboard-io/draftboard/pkg/board"
	"github.com/draftboard-io/draftboard/pkg/bus"
	"github.com/draftboard-io/draftboard/pkg/cache"
	"github.com/draftboard-io/draftboard/pkg/chatstore"
	"github.com/draftboard-io/draftboard/pkg/chatsync"
	"github.com/draftboard-io/draftboard/pkg/config"
	"github.com/draftboard-io/draftboard/pkg/history"
	"github.com/draftboard-io/draftboard/pkg/httpapi"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "draftboard",
		Short: "Diagram editor backend with undo history and synced chat sessions",
	}
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the draftboard server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if err := config.SetupLogging(cfg.Log); err != nil {
				return err
			}
			return runServer(cmd, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServer(cmd *cobra.Command, cfg config.Config) error {
	remote, err := buildRemoteStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = remote.Close() }()

	local, err := buildCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer func() { _ = local.Close() }()

	b, err := bus.NewBus(cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	engine, err := chatsync.NewEngine(chatsync.Config{
		Remote:   remote,
		Cache:    local,
		Debounce: cfg.Debounce(),
		OnStatus: func(u chatsync.StatusUpdate) {
			if err := b.PublishJSON(bus.TopicSyncStatus, u); err != nil {
				log.Warn().Err(err).Msg("publish sync status failed")
			}
		},
	})
	if err != nil {
		return err
	}

	store := board.NewStore()
	recorder, err := history.NewRecorder(store, cfg.History.Capacity)
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(httpapi.Config{
		Addr:     cfg.Addr,
		Board:    store,
		Recorder: recorder,
		Sessions: remote,
		Sync:     engine,
		Bus:      b,
	})
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}

func buildRemoteStore(cfg config.StoreConfig) (chatstore.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return chatstore.NewSQLiteStore(cfg.DSN)
	case "memory":
		return chatstore.NewInMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func buildCache(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "badger":
		return cache.NewBadgerStore(cfg.Path)
	case "redis":
		return cache.NewRedisStore(cfg.Addr)
	case "memory":
		return cache.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
