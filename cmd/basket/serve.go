package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/akins11/market-basket-analysis-web-app/internal/api"
	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/config"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/maintenance"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store/memstore"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store/sqlite"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Examples:
  basket serve
  basket serve --addr :9090
  BASKET_STORAGE_DRIVER=sqlite BASKET_STORAGE_PATH=basket.db basket serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		st, err := sqlite.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store %s: %w", cfg.Path, err)
		}
		return st, nil
	default:
		return memstore.New(), nil
	}
}

func newEngine(st store.Store, cfg *config.Config) *basket.Engine {
	return basket.New(basket.Options{
		Store:             st,
		Mining:            cfg.MiningOptions(),
		Thresholds:        cfg.Thresholds(),
		TaxonomyThreshold: cfg.Taxonomy.Threshold,
		Timeout:           cfg.Mining.Timeout,
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	engine := newEngine(st, cfg)
	defer func() {
		if err := engine.Close(); err != nil {
			logging.Err(err).Msg("closing store")
		}
	}()

	presets, err := (&config.Loader{PresetsPath: cfg.Server.PresetsPath}).Load()
	if err != nil {
		return err
	}

	mwCfg := api.DefaultMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Server.RateLimitRequests
	mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	router := api.NewRouter(api.NewHandler(engine, presets), api.NewMiddleware(mwCfg), cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().
			Str("addr", ln.Addr().String()).
			Str("storage", cfg.Storage.Driver).
			Int("presets", len(presets.Queries)+len(presets.Products)).
			Msg("basket listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.Storage.PruneInterval > 0 {
		pruner := &maintenance.Pruner{
			Store:          st,
			MaxAge:         cfg.Storage.MaxAge,
			KeepPerDataset: cfg.Storage.KeepPerDataset,
		}
		g.Go(func() error {
			return pruner.Run(gctx, cfg.Storage.PruneInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logging.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
