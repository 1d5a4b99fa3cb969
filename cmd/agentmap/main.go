package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agent-first/agentmap/api"
	"github.com/agent-first/agentmap/catalog"
	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/render"
	"github.com/agent-first/agentmap/scraper"
	"github.com/agent-first/agentmap/store"
	"github.com/agent-first/agentmap/summarize"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("agentmap starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	// ── 3. Open the product store ───────────────────────────────────
	st, err := store.Open(cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// ── 4. Start the render worker ──────────────────────────────────
	worker := render.NewWorker(cfg.Browser, cfg.Scraper)
	defer worker.Close()

	// ── 5. Wire the scraper and collaborators ───────────────────────
	sc := scraper.New(cfg.Scraper, scraper.DefaultRules(), worker)

	sum := summarize.NewClient(cfg.LLM)
	if sum == nil {
		slog.Warn("GROQ_API_KEY not set; products will be indexed without summaries")
	}

	gen := catalog.NewGenerator(cfg.Catalog)

	// ── 6. Setup router and HTTP server ─────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, sum, st, gen, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// worker.Close() and st.Close() run via defer.
	slog.Info("agentmap stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
