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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/internal/assistant"
	"github.com/diewo77/go-facturas/internal/cache"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/jobs"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/pdf"
	"github.com/diewo77/go-facturas/internal/policy"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/view"
)

const (
	shutdownTimeout = 10 * time.Second
	caiWatchTimeout = 5 * time.Minute
	devTemplates    = "view/templates"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	cfg := rt.cfg
	auth.Configure(cfg.Session.Secret, cfg.SessionTTL(), cfg.Session.Secure)

	gdb, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	switch {
	case cfg.App.Migrations:
		if err := db.MigrateSQL(cfg.Database.MigrateURL(), db.Up); err != nil {
			return err
		}
	case cfg.App.Dev:
		if err := db.AutoMigrate(gdb); err != nil {
			return err
		}
	}
	if err := db.Seed(ctx, gdb); err != nil {
		return err
	}

	// sessions of deleted users stop working right away
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		gdb.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count)
		return count > 0
	})
	if cfg.App.Dev {
		if _, err := os.Stat(devTemplates); err == nil {
			view.SetSource(os.DirFS(devTemplates), true)
		}
	}

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	deps := policy.Deps{
		Cache:       store,
		SnapshotTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		Expiry:      services.ExpiryOptions{WithinDays: cfg.CAIWatch.WithinDays, Threshold: cfg.CAIWatch.Threshold},
	}
	if generator, err := pdf.NewFromConfig(cfg.PDF, cfg.Storage); err != nil {
		zap.L().Warn("pdf generation disabled", zap.Error(err))
	} else {
		deps.PDF = generator
	}
	if asker := assistant.NewFromConfig(cfg.Assistant); asker != nil {
		deps.Assistant = asker
	} else {
		zap.L().Info("assistant disabled: OPENAI_API_KEY or PINECONE_HOST not set")
	}
	routerCfg := policy.NewRouterConfig(gdb, deps)

	limiter := middleware.NewRateLimiter(cfg.Assistant.RatePerMinute, cfg.Assistant.Burst)
	limiter.StartCleanup(ctx, time.Minute)

	if cfg.CAIWatch.Enabled {
		watch := jobs.NewCAIWatch(gdb, routerCfg.CAIs, jobs.NewNotifier(cfg.SMTP), cfg.CAIWatch)
		c, err := jobs.Schedule(watch, cfg.CAIWatch.Schedule, caiWatchTimeout)
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
		zap.L().Info("cai watch scheduled", zap.String("schedule", cfg.CAIWatch.Schedule))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(gdb, routerCfg, limiter),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	zap.L().Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zap.L().Info("server stopped gracefully")
	return nil
}

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply the SQL migrations, or roll back one step",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.MigrateSQL(rt.cfg.Database.MigrateURL(), db.Direction(args[0]))
		},
	}
}

func newSeedCmd(rt *runtime) *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the permissions and system profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gdb, err := db.Connect(ctx, rt.cfg.Database)
			if err != nil {
				return err
			}
			if err := db.Seed(ctx, gdb); err != nil {
				return err
			}
			if admin != "" {
				if err := db.PromoteAdmin(ctx, gdb, admin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now admin\n", admin)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "email of an existing user to promote to admin")
	return cmd
}

func newCAICheckCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "cai-check",
		Short: "Notify owners of CAIs close to expiry or exhaustion, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), caiWatchTimeout)
			defer cancel()
			gdb, err := db.Connect(ctx, rt.cfg.Database)
			if err != nil {
				return err
			}
			n, err := runCAICheck(ctx, gdb, rt)
			fmt.Fprintf(cmd.OutOrStdout(), "%d CAI flagged\n", n)
			return err
		},
	}
}

func runCAICheck(ctx context.Context, gdb *gorm.DB, rt *runtime) (int, error) {
	watch := jobs.NewCAIWatch(gdb, services.NewCAIService(gdb), jobs.NewNotifier(rt.cfg.SMTP), rt.cfg.CAIWatch)
	return watch.Run(ctx)
}
