package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gongahkia/mike/internal/server"
	"github.com/gongahkia/mike/internal/storage"
)

func main() {
	cfg := server.ConfigFromEnv()
	configStore := server.NewConfigStore(cfg)

	store, err := storage.OpenDefault()
	if err != nil {
		log.Printf("[server] storage unavailable, running without persistence: %v", err)
		store = nil
	}
	defer func() {
		if store != nil {
			if err := store.Close(); err != nil {
				log.Printf("[server] closing storage: %v", err)
			}
		}
	}()

	registry := server.NewRegistry(cfg.MaxGames)
	hub := server.NewHub()
	srv := server.New(configStore, registry, hub, store)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	group, groupCtx := errgroup.WithContext(sigCtx)
	group.Go(func() error {
		hub.Run(groupCtx.Done())
		return nil
	})
	group.Go(func() error {
		log.Printf("[server] listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[server] graceful shutdown failed: %v", err)
			return httpServer.Close()
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Printf("[server] exiting after error: %v", err)
	}
}
