package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devadigapratham/filavault/api"
	"github.com/devadigapratham/filavault/api/handlers"
	"github.com/devadigapratham/filavault/config"
	"github.com/devadigapratham/filavault/raft"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveFlags struct {
	id        string
	raftAddr  string
	raftDir   string
	httpAddr  string
	dataDir   string
	bootstrap bool
	join      string
	peers     []string
}

func newServeCommand(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a cluster node with the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, global, flags)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Logging.Level, global.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}

	bindServeFlags(cmd, flags)
	return cmd
}

func bindServeFlags(cmd *cobra.Command, flags *serveFlags) {
	cmd.Flags().StringVar(&flags.id, "id", "", "Node ID (defaults to the Raft directory name)")
	cmd.Flags().StringVar(&flags.raftAddr, "raft-addr", "", "Raft transport address")
	cmd.Flags().StringVar(&flags.raftDir, "raft-dir", "", "Raft storage directory")
	cmd.Flags().StringVar(&flags.httpAddr, "http-addr", "", "HTTP API address")
	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "", "Directory for uploaded archives and backups")
	cmd.Flags().BoolVar(&flags.bootstrap, "bootstrap", false, "Bootstrap the cluster")
	cmd.Flags().StringVar(&flags.join, "join", "", "HTTP address of an existing node to join")
	cmd.Flags().StringSliceVar(&flags.peers, "peers", nil, "Comma-separated list of peer Raft addresses")
}

// loadServeConfig layers the config file over the defaults and the flags that
// were set explicitly over both
func loadServeConfig(cmd *cobra.Command, global *globalFlags, flags *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(global.config)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("id") {
		cfg.Node.ID = flags.id
	}
	if changed("raft-addr") {
		cfg.Node.RaftAddr = flags.raftAddr
	}
	if changed("raft-dir") {
		cfg.Node.RaftDir = flags.raftDir
	}
	if changed("http-addr") {
		cfg.Node.HTTPAddr = flags.httpAddr
	}
	if changed("data-dir") {
		cfg.Storage.DataDir = flags.dataDir
	}
	if changed("bootstrap") {
		cfg.Node.Bootstrap = flags.bootstrap
	}
	if changed("join") {
		cfg.Node.JoinAddr = flags.join
		// joining an existing cluster never bootstraps a new one
		if !changed("bootstrap") {
			cfg.Node.Bootstrap = false
		}
	}
	if changed("peers") {
		cfg.Node.Peers = flags.peers
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Create Raft data directory if it doesn't exist
	if err := os.MkdirAll(cfg.Node.RaftDir, 0o755); err != nil {
		return fmt.Errorf("failed to create Raft directory: %w", err)
	}

	store, err := raft.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("error closing store", zap.Error(err))
		}
	}()

	node, err := raft.NewNode(&raft.Config{
		NodeID:    cfg.Node.ID,
		RaftAddr:  cfg.Node.RaftAddr,
		RaftDir:   cfg.Node.RaftDir,
		Bootstrap: cfg.Node.Bootstrap,
		Peers:     cfg.Node.Peers,
		LogLevel:  cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("failed to create Raft node: %w", err)
	}
	defer func() {
		if err := node.Shutdown(); err != nil {
			logger.Warn("error shutting down Raft node", zap.Error(err))
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	handler := handlers.NewHandler(node, store, logger.Named("api"), handlers.Options{
		MaxUploadBytes:   cfg.MaxUploadBytes(),
		ImportsPerMinute: cfg.Import.PerMinute,
	})
	router := api.SetupRouter(handler, api.MembershipHandler(node), logger.Named("http"))

	server := &http.Server{
		Addr:              cfg.Node.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("node_id", cfg.Node.ID),
			zap.String("http_addr", cfg.Node.HTTPAddr),
			zap.String("raft_addr", cfg.Node.RaftAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.Node.JoinAddr != "" {
		logger.Info("joining cluster", zap.String("join", cfg.Node.JoinAddr))
		if err := raft.NewTransport(node).JoinCluster(ctx, cfg.Node.JoinAddr, cfg.Node.ID, cfg.Node.RaftAddr); err != nil {
			// The node keeps serving reads; an operator can retry the join
			logger.Error("failed to join cluster", zap.Error(err))
		}
	}

	if err := node.WaitForLeader(10 * time.Second); err != nil {
		logger.Warn("cluster has no leader yet", zap.Error(err))
	} else {
		logger.Info("cluster ready", zap.String("leader", node.LeaderAddress()), zap.String("state", node.State()))
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
	return nil
}
