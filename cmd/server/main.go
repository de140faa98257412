package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/pubquiz-backend/internal/auth"
	"github.com/DoyleJ11/pubquiz-backend/internal/config"
	"github.com/DoyleJ11/pubquiz-backend/internal/httpapi"
	"github.com/DoyleJ11/pubquiz-backend/internal/quiz"
	"github.com/DoyleJ11/pubquiz-backend/internal/registry"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var log *zap.Logger
	var err error
	if cfg.Env == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var st store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connect failed", zap.Error(err))
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemStore()
	}

	api := &httpapi.API{
		Store:    st,
		Registry: registry.New(st, log),
		Director: quiz.NewDirector(st),
		Ledger:   quiz.NewLedger(st),
		Auth:     auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Log:      log,
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(api),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
