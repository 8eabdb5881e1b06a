package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/neurasense/connect/internal/adapters/driven/auth"
	"github.com/neurasense/connect/internal/adapters/driven/providers"
	httpadapter "github.com/neurasense/connect/internal/adapters/driving/http"
	"github.com/neurasense/connect/internal/config"
	"github.com/neurasense/connect/internal/core/services"
)

var serveCmd = &cobra.Command{
	Use:       "serve [api|worker|all]",
	Short:     "Run the HTTP API, the state sweeper, or both",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{config.RunModeAPI, config.RunModeWorker, config.RunModeAll},
	RunE:      runServe,
}

func init() {
	serveCmd.Flags().String("host", "0.0.0.0", "Listen host")
	serveCmd.Flags().Int("port", 8080, "Listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.RunMode = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx := cmd.Context()
	logger.Info("neurasense starting", "version", version, "mode", cfg.RunMode, "store", cfg.Store)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close stores", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RunMode == config.RunModeAPI || cfg.RunMode == config.RunModeAll {
		server, err := newAPIServer(cfg, st, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Start(ctx) })
	}

	if cfg.RunMode == config.RunModeWorker || cfg.RunMode == config.RunModeAll {
		sweeper := newSweeper(cfg, st, logger)
		g.Go(func() error {
			if err := sweeper.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			sweeper.Stop()
			return nil
		})
	}

	return g.Wait()
}

func newAPIServer(cfg *config.Config, st *stores, logger *slog.Logger) (*httpadapter.Server, error) {
	registry, err := providers.Build(providerSettings(cfg), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("oauth providers configured", "providers", registry.Configured())

	identity := auth.NewAdapter(cfg.IdentityJWTSecret)

	connect := services.NewConnectService(services.ConnectServiceConfig{
		StateStore:      st.states,
		TokenStore:      st.tokens,
		Identity:        identity,
		Providers:       registry,
		Logger:          logger,
		BaseURL:         cfg.BaseURL,
		SuccessPath:     cfg.SuccessPath,
		StateTTL:        cfg.StateTTL,
		ProviderTimeout: cfg.ProviderTimeout,
	})
	connections := services.NewConnectionService(st.tokens, logger)

	return httpadapter.NewServer(httpadapter.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		Version:           version,
		BaseURL:           cfg.BaseURL,
		CallbackErrorPath: cfg.CallbackErrorPath,
		AllowedOrigins:    cfg.AllowedOrigins,
	}, connect, connections, identity, st.pingers, logger), nil
}

func newSweeper(cfg *config.Config, st *stores, logger *slog.Logger) *services.StateSweeper {
	return services.NewStateSweeper(services.StateSweeperConfig{
		StateStore: st.states,
		Lock:       st.lock,
		Logger:     logger,
		Interval:   cfg.StateSweepInterval,
	})
}

func providerSettings(cfg *config.Config) providers.Settings {
	conv := func(p config.ProviderConfig) providers.Config {
		return providers.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURI:  p.RedirectURI,
			UserAgent:    p.UserAgent,
		}
	}
	return providers.Settings{
		Twitter: conv(cfg.Twitter),
		Reddit:  conv(cfg.Reddit),
		Spotify: conv(cfg.Spotify),
	}
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired OAuth states once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		st, err := openStores(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		removed, err := newSweeper(cfg, st, logger).SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired states\n", removed)
		return nil
	},
}

