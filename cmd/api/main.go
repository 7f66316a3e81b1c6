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

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/recipes/internal/config"
	"github.com/ovaphlow/pitchfork/recipes/internal/router"
	"github.com/ovaphlow/pitchfork/recipes/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/recipes/internal/session/repo"
	"github.com/ovaphlow/pitchfork/recipes/internal/web"
	"github.com/ovaphlow/pitchfork/recipes/pkg/database"
	"github.com/ovaphlow/pitchfork/recipes/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting recipes")

	dbCfg := database.ConfigFromEnv()
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}

	cfg := config.ConfigFromEnv()
	if cfg.SessionSecret == config.DevSessionSecret {
		sugar.Warn("SESSION_SECRET not set; using the development secret")
	}

	renderer, err := web.NewTemplateRenderer()
	if err != nil {
		sugar.Fatalf("templates: %v", err)
	}

	sessions := session.NewManager(sessionrepo.NewSessionRepo(db), session.Options{
		Secret:       cfg.SessionSecret,
		CookieName:   cfg.SessionCookie,
		TTL:          cfg.SessionTTL,
		SecureCookie: cfg.SecureCookie,
	}, sugar)
	go sessions.RunCleanup(ctx, time.Hour)

	handler := router.RegisterRoutes(router.Deps{
		DB:       db,
		Config:   cfg,
		Sessions: sessions,
		Renderer: renderer,
		Logger:   sugar,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", cfg.Addr, "driver", dbCfg.Driver)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
