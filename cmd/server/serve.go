package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/puckquery/internal/api"
	"github.com/dom/puckquery/internal/websocket"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Seed the store if configured, then serve the HTTP API",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, log := setup()

	a, err := newApp(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	if err := a.services.Seed.Bootstrap(cmd.Context()); err != nil {
		log.WithError(err).Fatal("failed to load event data")
	}

	hub := websocket.NewHub(a.services.Chat, log.WithField("component", "websocket"))
	go hub.Run()

	router := api.NewRouter(a.services, a.cache, hub, cfg, a.registry)

	// WriteTimeout leaves room for a full engine build plus an answer.
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.EngineBuildTimeout + cfg.EngineAnswerTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
