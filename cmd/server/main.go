package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/balajivenky06/dandi/internal/api"
	"github.com/balajivenky06/dandi/internal/auth"
	"github.com/balajivenky06/dandi/internal/config"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/balajivenky06/dandi/internal/session"
	"github.com/balajivenky06/dandi/internal/storage/backend"
	"github.com/balajivenky06/dandi/internal/web"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogs(logConfig config.LogConfig) {
	// Equivalent of Lshortfile
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		return short + ":" + strconv.Itoa(line)
	}

	zerolog.SetGlobalLevel(logConfig.ToLevel())

	if logConfig.JSON {
		log.Logger = log.With().Caller().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()
	}
}

func openSessions(cfg config.SessionConfig) (session.Store, error) {
	if cfg.Store == "redis" {
		return session.NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return session.NewMemoryStore(10 * time.Minute), nil
}

func setupOIDC(ctx context.Context, cfg *config.Config) (*web.OIDC, error) {
	key, err := cfg.OIDC.GetSessionSecretBytes()
	if err != nil {
		return nil, err
	}
	sealer, err := auth.NewSealer(key)
	if err != nil {
		return nil, err
	}
	provider, err := auth.NewOIDCProvider(ctx, auth.ProviderConfig{
		IssuerURL:      cfg.OIDC.IssuerURL,
		ClientID:       cfg.OIDC.ClientID,
		ClientSecret:   cfg.OIDC.ClientSecret,
		RedirectURL:    cfg.OIDC.RedirectURL,
		Scopes:         cfg.OIDC.GetScopes(),
		AllowedDomains: cfg.OIDC.GetAllowedDomains(),
	})
	if err != nil {
		return nil, err
	}
	return &web.OIDC{
		Provider:  provider,
		Sessions:  auth.NewSessionManager(sealer, cfg.OIDC.SessionDuration, cfg.Access.CookieSecure),
		States:    auth.NewStateStore(sealer, cfg.Access.CookieSecure),
		LogoutURL: cfg.OIDC.LogoutURL,
	}, nil
}

func limits(cfg config.LimitsConfig) service.Limits {
	return service.Limits{
		MaxKeys:           cfg.MaxKeys,
		UndoWindow:        cfg.UndoWindow,
		NotificationTTL:   cfg.NotificationTTL,
		ClipboardErrorTTL: cfg.ClipboardErrorTTL,
		LoadRetries:       cfg.LoadRetries,
		LoadBackoff:       cfg.LoadBackoff,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogs(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	store, err := backend.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to initialize storage")
	}
	defer store.Close()

	gates, err := openSessions(cfg.Session)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Session.Store).Msg("Failed to initialize session store")
	}
	defer gates.Close()

	keys := service.NewController(store, service.WithLimits(limits(cfg.Limits)))
	defer keys.Close()
	if err := keys.Load(ctx); err != nil {
		// The dashboard shows the banner with a retry button.
		log.Error().Err(err).Msg("Initial key load failed")
	}

	validator := service.NewValidator(store)

	var oidc *web.OIDC
	if cfg.OIDC.Enabled {
		oidc, err = setupOIDC(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize OIDC")
		}
		log.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("OIDC login enabled")
	}

	webRouter := web.NewRouter(web.Options{
		Keys:          keys,
		Validator:     validator,
		Gates:         gates,
		GateTTL:       cfg.Session.TTL,
		MaxKeys:       cfg.Limits.MaxKeys,
		ToastDuration: cfg.Limits.NotificationTTL,
		SecureCookies: cfg.Access.CookieSecure,
		OIDC:          oidc,
	})

	router := api.NewRouter(api.Options{
		Store:              store,
		Validator:          validator,
		Web:                webRouter,
		AdminToken:         cfg.Access.AdminToken,
		MaxKeys:            cfg.Limits.MaxKeys,
		CORSAllowedOrigins: cfg.Access.GetCORSAllowedOrigins(),
	})
	if cfg.Access.AdminToken == "" {
		log.Info().Msg("API_ADMIN_TOKEN not set, key management API disabled")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Msgf("Starting dandi on http://%s", cfg.Server.Addr())

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
