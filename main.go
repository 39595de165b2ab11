package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dbconsole/internal/config"
	"dbconsole/internal/httpapi"
	"dbconsole/internal/llm"
	mcpserver "dbconsole/internal/mcp"
	"dbconsole/internal/secret"
	"dbconsole/internal/session"
)

func main() {
	mcpMode := flag.Bool("mcp", false, "serve the Model Context Protocol on stdin/stdout instead of HTTP")
	flag.Parse()

	cfg := config.Load()

	key, err := secret.ResolveKey(cfg.SessionKey, cfg.KeyPath())
	if err != nil {
		log.Fatalf("resolve session key: %v", err)
	}
	box, err := secret.NewBox(key)
	if err != nil {
		log.Fatalf("init session crypto: %v", err)
	}

	store, err := session.NewStore(session.Options{
		Dir: cfg.SessionsDir(),
		Box: box,
	})
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}
	if err := store.Start(); err != nil {
		log.Fatalf("start session store: %v", err)
	}
	defer store.Stop()

	var generator llm.Generator
	if cfg.LLMEndpoint != "" {
		generator = llm.NewClient(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel)
	}

	if *mcpMode {
		if err := mcpserver.New(store, generator).ServeStdio(); err != nil {
			log.Fatalf("mcp server: %v", err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	api := httpapi.New(store, generator)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[http] listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
}
