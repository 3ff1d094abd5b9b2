package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/constants"
	"antigravity-gateway/internal/credential"
	"antigravity-gateway/internal/logging"
	monenh "antigravity-gateway/internal/monitoring"
	tracing "antigravity-gateway/internal/monitoring/tracing"
	"antigravity-gateway/internal/oauth"
	srv "antigravity-gateway/internal/server"
	"antigravity-gateway/internal/translator"
	"antigravity-gateway/internal/usage"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg := config.LoadWithFile(*configPath)
	if cfg == nil {
		log.Fatal("Failed to load configuration")
	}
	if *debug {
		cfg.Security.Debug = true
		cfg.SyncFromDomains()
	}

	if err := cfg.ValidateAndExpandPaths(); err != nil {
		log.WithError(err).Fatal("invalid configuration paths")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	var missingEnv []string
	if strings.TrimSpace(cfg.Security.APIKey) == "" {
		missingEnv = append(missingEnv, "API_KEY")
	}
	if strings.TrimSpace(cfg.Security.PanelUser) == "" {
		missingEnv = append(missingEnv, "PANEL_USER")
	}
	if strings.TrimSpace(cfg.Security.PanelPassword) == "" {
		missingEnv = append(missingEnv, "PANEL_PASSWORD")
	}
	if len(missingEnv) > 0 {
		log.Fatalf("missing required configuration: %s", strings.Join(missingEnv, ", "))
	}

	traceShutdown, err := tracing.Init(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	// Enforce single upstream provider: gemini (Code Assist)
	up := strings.ToLower(strings.TrimSpace(cfg.Upstream.UpstreamProvider))
	if up != "" && up != "gemini" && up != "code_assist" {
		log.Errorf("unsupported upstream_provider=%s; forcing 'gemini'", up)
		cfg.Upstream.UpstreamProvider = "gemini"
		cfg.SyncFromDomains()
	}
	log.Infof("Starting antigravity-gateway (config: %s)", *configPath)

	if strings.TrimSpace(cfg.OAuth.ClientID) == "" || strings.TrimSpace(cfg.OAuth.ClientSecret) == "" {
		log.Warn("OAuth client credentials are not configured; OAuth onboarding features will be unavailable")
	}
	translator.ConfigureSanitizer(cfg.ResponseShaping.SanitizerEnabled, cfg.ResponseShaping.SanitizerPatterns)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	credStore, err := buildCredentialStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize credential store")
	}

	usageBackend, err := buildUsageBackend(cfg)
	if err != nil {
		log.WithError(err).Warn("failed to initialize usage backend; falling back to local file")
		usageBackend = usage.NewFileBackend(defaultUsageLogPath(cfg.Security.AuthDir))
	}

	usageStore, err := usage.NewStore(ctx, usage.Options{
		Backend:       usageBackend,
		RetentionDays: cfg.RateLimit.UsageResetIntervalHours / 24,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize usage store")
	}

	oauthClient := oauth.NewClient(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.RedirectURL)

	pool := credential.NewPool(credStore, usageStore, oauthClient)
	if err := pool.Initialize(ctx); err != nil {
		log.WithError(err).Warn("failed to load credentials from store; starting with an empty pool")
	}
	if cfg.Execution.CallsPerRotation > 0 {
		pool.SetHourlyLimit(cfg.Execution.CallsPerRotation)
	}

	metrics := monenh.NewEnhancedMetrics()
	monenh.SetDefaultMetrics(metrics)

	deps := srv.Dependencies{
		Pool:            pool,
		UsageStore:      usageStore,
		EnhancedMetrics: metrics,
	}
	openaiEngine, geminiEngine := srv.BuildEngines(cfg, deps)

	openaiSrv := &http.Server{Addr: ":" + cfg.Server.OpenAIPort, Handler: openaiEngine}
	var geminiSrv *http.Server
	if strings.TrimSpace(cfg.Server.GeminiPort) != "" && strings.TrimSpace(cfg.Server.GeminiPort) != "0" {
		geminiSrv = &http.Server{Addr: ":" + cfg.Server.GeminiPort, Handler: geminiEngine}
	}

	go func() {
		log.Infof("OpenAI/Anthropic API listening on :%s", cfg.Server.OpenAIPort)
		if err := openaiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("openai server: %v", err)
		}
	}()

	if geminiSrv != nil {
		go func() {
			log.Infof("Gemini API listening on :%s", cfg.Server.GeminiPort)
			if err := geminiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("gemini server: %v", err)
			}
		}()
	} else {
		log.Infof("Gemini API disabled (gemini_port unset or 0)")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()

	go func() { _ = openaiSrv.Shutdown(shutdownCtx) }()
	if geminiSrv != nil {
		go func() { _ = geminiSrv.Shutdown(shutdownCtx) }()
	}

	time.Sleep(constants.ServerGracefulWait)
	log.Info("Servers stopped")
}
