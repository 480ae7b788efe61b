package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/soaringjerry/Huddle/internal/api"
	"github.com/soaringjerry/Huddle/internal/config"
	"github.com/soaringjerry/Huddle/internal/logging"
	"github.com/soaringjerry/Huddle/internal/middleware"
	"github.com/soaringjerry/Huddle/internal/services"
	"github.com/soaringjerry/Huddle/internal/telemetry"
	"github.com/soaringjerry/Huddle/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "huddle: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "huddle", cfg.Commit, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	llm := services.NewOpenAIClient(services.OpenAIConfig{
		APIKey:      cfg.OpenAIKey,
		BaseURL:     cfg.OpenAIBase,
		Model:       cfg.OpenAIModel,
		Temperature: 0.4,
		Timeout:     cfg.LLMTimeout,
	}, nil)
	if cfg.OpenAIKey == "" {
		log.Warn("HUDDLE_OPENAI_KEY not set; analysis and questions use fallbacks")
	}

	var secret []byte
	var auth *services.AuthService
	if cfg.FacilitatorAuth {
		secret = []byte(cfg.JWTSecret)
		auth = services.NewAuthService(cfg.FacilitatorPasscodeHash, middleware.Signer(secret))
	}

	rt, err := api.NewRouter(api.Options{
		Store:              store,
		LLM:                llm,
		Auth:               auth,
		RequireFacilitator: cfg.FacilitatorAuth,
		PollInterval:       cfg.PollInterval,
		Log:                log,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	rt.Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Huddle API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"store":      cfg.Store,
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	var handler http.Handler = mux
	handler = middleware.WithAuth(secret)(handler)
	handler = middleware.LocaleMiddleware(handler)
	handler = middleware.Revalidate(handler)
	handler = middleware.SecureHeaders(handler)
	handler = middleware.CORS(handler)
	handler = middleware.RequestLog(log)(handler)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "store": cfg.Store}).Info("Huddle server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
