package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joy-dx/sessionnet"
	"github.com/joy-dx/sessionnet/authapi"
	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	method := flag.String("method", http.MethodGet, "HTTP method")
	path := flag.String("path", "/auth/me/", "Path relative to base_url, or an absolute URL")
	data := flag.String("data", "", "JSON object sent as the request body")
	username := flag.String("user", "", "Log in as this user before the request")
	password := flag.String("password", os.Getenv("SESSIONNET_PASSWORD"), "Password for -user")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.LogLevel == "debug" {
		slogLevel = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)
	rly := relays.ProvideRelay()
	rly.RegisterSink(relays.NewSlogSink(logger))
	cfg.WithRelay(rly)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	svc := sessionnet.ProvideNetSvc(cfg)
	if err := svc.Hydrate(ctx); err != nil {
		slog.Error("Failed to initialize net service", "error", err)
		os.Exit(1)
	}

	ended, unsub := svc.SessionListener()
	defer unsub()
	go func() {
		for range ended {
			slog.Warn("Session ended, log in again with -user")
		}
	}()

	if *username != "" {
		res, err := authapi.New(svc).Login(ctx, authapi.LoginRequest{Username: *username, Password: *password})
		if err != nil {
			slog.Error("Login failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Logged in", "user", res.User.Username)
	}

	code := run(ctx, svc, strings.ToUpper(*method), *path, *data)
	os.Exit(code)
}

func run(ctx context.Context, svc *sessionnet.NetSvc, method, path, data string) int {
	var payload map[string]interface{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			slog.Error("Invalid -data, expected a JSON object", "error", err)
			return 2
		}
	}

	var (
		resp dto.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = svc.Get(ctx, path, true)
	case http.MethodPost:
		resp, err = svc.Post(ctx, path, payload, false)
	case http.MethodPut:
		resp, err = svc.Put(ctx, path, payload, false)
	case http.MethodDelete:
		resp, err = svc.Delete(ctx, path, false)
	default:
		slog.Error("Unsupported method", "method", method)
		return 2
	}

	if err != nil {
		slog.Error("Request failed", "status", resp.StatusCode, "error", err)
		fmt.Fprintln(os.Stderr, dto.UserMessage(err))
		if errors.Is(err, dto.ErrRefreshFailed) || errors.Is(err, dto.ErrAuthExpired) {
			return 3
		}
		return 1
	}
	fmt.Println(string(resp.Body))
	return 0
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server stopped", "error", err)
	}
}
