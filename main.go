package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/facebookgo/httpdown"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	defaults := defaultConfig()
	configPath := flag.String("config", os.Getenv("RELAYHUB_CONFIG"), "path to YAML config file")
	addr := flag.String("addr", defaults.Addr, "http service address")
	origin := flag.String("origin", defaults.Origin, "websocket server checks Origin headers against this scheme://host[:port]")
	heartbeat := flag.Duration("heartbeat", defaults.Heartbeat, "liveness probe interval")
	stopTimeout := flag.Duration("stop-timeout", defaults.StopTimeout, "stop timeout")
	killTimeout := flag.Duration("kill-timeout", defaults.KillTimeout, "kill timeout")
	logLevel := flag.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "origin":
			cfg.Origin = *origin
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "stop-timeout":
			cfg.StopTimeout = *stopTimeout
		case "kill-timeout":
			cfg.KillTimeout = *killTimeout
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.slogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	startMetrics()
	defer finalMetrics()

	clock := newHeartbeatClock(cfg.Heartbeat)
	defer clock.stop()

	h := newHub(cfg.Heartbeat, clock.subscribe().tick, logger)
	go h.run()
	go logStats(h, clock.subscribe(), logger)

	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: newHandler(h, cfg.Addr, cfg.Origin),
	}
	hd := &httpdown.HTTP{
		StopTimeout: cfg.StopTimeout,
		KillTimeout: cfg.KillTimeout,
	}

	logger.Info("listening", "addr", cfg.Addr, "heartbeat", cfg.Heartbeat)
	if err := httpdown.ListenAndServe(server, hd); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newHandler(h *hub, addr, origin string) http.Handler {
	handler := mux.NewRouter()

	// Route websocket requests
	handler.Headers(
		// Requests with these headers will use this handler
		"Connection", "Upgrade",
		"Upgrade", "websocket",
	).Handler(newWsHandler(h, origin))

	handler.Path("/healthz").Methods("GET").HandlerFunc(healthz)
	handler.Path("/stats").Methods("GET").Handler(statsHandler{h: h})

	// Route other GET and POST requests
	handler.Methods("GET").Handler(getHandler{h: h, addr: addr})
	handler.Methods("POST").Handler(postHandler{h: h})

	return handler
}

// logStats reports hub gauges once per heartbeat tick.
func logStats(h *hub, sub *subscriber, logger *slog.Logger) {
	for range sub.tick {
		s := h.snapshot()
		logger.Info("relay stats", "connections", s.Connections, "channels", s.Channels)
	}
}
