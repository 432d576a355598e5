package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/sightlinehq/sightline/internal/analyze"
	"github.com/sightlinehq/sightline/internal/auth"
	"github.com/sightlinehq/sightline/internal/handlers"
	"github.com/sightlinehq/sightline/internal/monitor"
	"github.com/sightlinehq/sightline/internal/ratelimit"
	"github.com/sightlinehq/sightline/internal/reporter"
	"github.com/sightlinehq/sightline/internal/scanner"
	"github.com/sightlinehq/sightline/internal/server"
	"github.com/sightlinehq/sightline/internal/sse"
	"github.com/sightlinehq/sightline/internal/store"
	"github.com/sightlinehq/sightline/internal/tlsserve"
	"github.com/sightlinehq/sightline/internal/webhook"
	"github.com/sightlinehq/sightline/internal/ws"
	"github.com/sightlinehq/sightline/web"
)

func main() {
	_ = godotenv.Load()

	logger := server.SetupLogger(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage is optional — without DATABASE_URL the scan and analyze
	// endpoints still work, only history endpoints are disabled.
	var st *store.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		var err error
		st, err = store.Connect(ctx, dsn, logger)
		if err != nil {
			logger.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer st.Close()
	} else {
		logger.Warn("DATABASE_URL not set, scan history disabled")
	}

	scanCfg := scanner.DefaultConfig()
	if engine := os.Getenv("SCAN_ENGINE"); engine != "" {
		scanCfg.Engine = engine
	}
	if ms := envMillis("SCAN_SETTLE_MS"); ms > 0 {
		scanCfg.Settle = ms
	}
	if ms := envMillis("SCAN_TIMEOUT_MS"); ms > 0 {
		scanCfg.Timeout = ms
	}
	sc := scanner.New(scanCfg, logger)

	pipeline := analyze.NewPipeline(analyze.Config{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:  os.Getenv("ANTHROPIC_MODEL"),
	}, logger)
	if !pipeline.ModelEnabled() {
		logger.Warn("ANTHROPIC_API_KEY not set, reports use the local heuristic only")
	}

	sseHub := sse.NewHub(logger)
	limiter := ratelimit.New()
	wsManager := ws.NewManager(recentScansHello(ctx, st), logger)

	// Issue filing is optional.
	rp := reporter.New(ctx, os.Getenv("GITHUB_TOKEN"), os.Getenv("GITHUB_ISSUE_REPO"), logger)

	// HTTP handlers
	scanHandler := handlers.NewScanHandler(sc, pipeline, st, sseHub, wsManager, limiter, logger)
	analyzeHandler := handlers.NewAnalyzeHandler(pipeline, limiter, logger)
	scansHandler := handlers.NewScansHandler(st, limiter, logger)
	sitesHandler := handlers.NewSitesHandler(st, limiter, logger)
	statsHandler := handlers.NewStatsHandler(st, limiter, logger)
	streamHandler := handlers.NewStreamHandler(sseHub, logger)
	issueHandler := handlers.NewIssueHandler(st, rp, limiter, logger)

	// Build router
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	// Health check
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	// Dashboard
	r.Handle("/", web.Handler())

	// Scan and analyze (rate limited, no auth)
	r.Get("/scan", scanHandler.Scan)
	r.Post("/analyze", analyzeHandler.Analyze)

	// WebSocket (no auth)
	r.Get("/ws", wsManager.HandleWS)

	// Management API (token-guarded when API_TOKEN is set)
	r.Route("/api", func(api chi.Router) {
		if token := os.Getenv("API_TOKEN"); token != "" {
			api.Use(auth.RequireToken(token))
		}

		api.Get("/stats", statsHandler.Get)

		api.Get("/scans", scansHandler.List)
		api.Get("/scans/{id}", scansHandler.Get)
		api.Post("/scans/{id}/issue", issueHandler.Create)

		api.Post("/sites", sitesHandler.Create)
		api.Get("/sites", sitesHandler.List)
		api.Delete("/sites/{id}", sitesHandler.Delete)
		api.Get("/sites/{id}/history", sitesHandler.History)

		// SSE stream
		api.Get("/stream/events", streamHandler.Events)
	})

	// Background monitor (needs storage)
	if st != nil {
		hook := webhook.NewClient(os.Getenv("WEBHOOK_URL"), os.Getenv("WEBHOOK_SECRET"))
		loop := monitor.NewLoop(st, sc, pipeline, wsManager, hook, monitorInterval(), logger)
		go server.RunWithRecovery(ctx, logger, "monitor-loop", func(ctx context.Context) {
			loop.Run(ctx)
		})
	}

	// Serve over auto-TLS when a domain is configured.
	if domain := os.Getenv("SIGHTLINE_DOMAIN"); domain != "" {
		cm := tlsserve.NewCertManager(domain, logger)
		if err := cm.ListenAndServe(r); err != nil {
			logger.Error("tls server failed", "err", err)
			os.Exit(1)
		}
		return
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE + WebSocket need unlimited write time
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel() // stop background goroutines

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("server starting", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// recentScansHello sends the latest scans to a freshly connected
// websocket client so the dashboard can render without a fetch.
func recentScansHello(ctx context.Context, st *store.Store) ws.HelloFunc {
	if st == nil {
		return nil
	}
	return func() []map[string]any {
		scans, err := st.RecentScans(ctx, 10)
		if err != nil {
			return nil
		}
		payloads := make([]map[string]any, 0, len(scans))
		for _, scan := range scans {
			data, err := json.Marshal(scan)
			if err != nil {
				continue
			}
			var payload map[string]any
			if err := json.Unmarshal(data, &payload); err != nil {
				continue
			}
			payload["type"] = "scan"
			payload["status"] = "recorded"
			payloads = append(payloads, payload)
		}
		return payloads
	}
}

func envMillis(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

func monitorInterval() time.Duration {
	if raw := os.Getenv("MONITOR_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= time.Minute {
			return d
		}
	}
	return time.Hour
}

// corsMiddleware allows the dashboard to call the API cross-origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
