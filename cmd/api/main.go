package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/delordemm1/go-identity-core/internal/cache"
	"github.com/delordemm1/go-identity-core/internal/config"
	"github.com/delordemm1/go-identity-core/internal/credential"
	"github.com/delordemm1/go-identity-core/internal/database"
	"github.com/delordemm1/go-identity-core/internal/events"
	"github.com/delordemm1/go-identity-core/internal/modules/user"
	"github.com/delordemm1/go-identity-core/internal/notification"
	"github.com/delordemm1/go-identity-core/internal/notification/templates"
	"github.com/delordemm1/go-identity-core/internal/server"
	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/delordemm1/go-identity-core/internal/token"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on (overrides SERVER_PORT)" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		cfg := config.Load()
		if cfg == nil {
			logger.Error("failed to load configuration")
			os.Exit(1)
		}
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		ctx := context.Background()

		// --- Database & Cache ---
		dbPool, err := database.NewPostgresPool(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to postgres database")

		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to redis")

		// --- Infrastructure ---
		issuer, err := token.NewIssuer(token.Config{
			AccessSecret:  []byte(cfg.JWT.AccessSecret),
			RefreshSecret: []byte(cfg.JWT.RefreshSecret),
			Issuer:        cfg.JWT.Issuer,
			AccessTTL:     cfg.JWT.AccessTTL,
			RefreshTTL:    cfg.JWT.RefreshTTL,
		}, token.NewRedisRevocations(redisClient))
		if err != nil {
			logger.Error("failed to create token issuer", "error", err)
			os.Exit(1)
		}

		publisher, err := events.New(cfg.Events, logger)
		if err != nil {
			logger.Error("failed to create event publisher", "driver", cfg.Events.Driver, "error", err)
			os.Exit(1)
		}

		var sender notification.EmailSender
		if cfg.SMTP.Host != "" {
			sender = notification.NewSMTPEmailSender(notification.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			}, logger)
		} else {
			logger.Warn("SMTP_HOST not set, emails will only be logged")
			sender = notification.NewLogEmailSender(logger)
		}
		mailer, err := notification.NewMailer(notification.Config{
			AppName:            cfg.App.Name,
			BaseURL:            cfg.App.BaseURL,
			SupportEmail:       cfg.App.SupportEmail,
			VerificationTTL:    user.EmailVerificationTTL,
			PasswordResetTTL:   user.PasswordResetTTL,
			ParentalConsentTTL: user.ParentalConsentTTL,
		}, templates.NewEngine(templates.Config{
			Dir:    cfg.App.TemplateDir,
			Reload: cfg.Server.Env == "development",
		}, logger), sender, logger)
		if err != nil {
			logger.Error("failed to initialize mailer", "error", err)
			os.Exit(1)
		}

		oauthProviders := map[user.OAuthProvider]*oauth2.Config{}
		if cfg.Google.ClientID != "" {
			oauthProviders[user.OAuthProviderGoogle] = &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			}
		}

		// --- User Module ---
		oauthStates := user.NewOAuthStateRepository(dbPool)
		userService := user.NewService(&user.Config{
			Users:          user.NewUserRepository(dbPool),
			Tokens:         user.NewTokenRepository(dbPool),
			Sessions:       session.NewPostgresRepository(dbPool),
			OAuthStates:    oauthStates,
			Credentials:    credential.NewBcrypt(bcrypt.DefaultCost),
			Issuer:         issuer,
			Notifier:       mailer,
			Events:         publisher,
			Limiter:        cache.NewRateLimiter(redisClient, "ratelimit"),
			Logger:         logger,
			SessionTTL:     cfg.Session.TTL,
			ResendCooldown: time.Duration(cfg.Verification.ResendCooldownSeconds) * time.Second,
			OAuth:          oauthProviders,
		})

		port := cfg.Server.Port
		if options.Port != 0 {
			port = fmt.Sprint(options.Port)
		}
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           server.New(cfg, logger, userService),
			ReadHeaderTimeout: 10 * time.Second,
		}

		janitorCtx, stopJanitor := context.WithCancel(context.Background())
		hooks.OnStart(func() {
			go purgeOAuthStates(janitorCtx, oauthStates, logger)

			logger.Info("starting server", "port", port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed to start", "error", err)
				os.Exit(1)
			}
		})
		// humacli keeps a single stop hook, so every teardown step is registered here.
		hooks.OnStop(stopSequence(logger,
			stopStep{"oauth janitor", func() error { stopJanitor(); return nil }},
			stopStep{"http server", func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}},
			stopStep{"pending emails", func() error { userService.Wait(); return nil }},
			stopStep{"event publisher", publisher.Close},
			stopStep{"redis", redisClient.Close},
			stopStep{"postgres", func() error { dbPool.Close(); return nil }},
		))
	})
	cli.Run()
}

type stopStep struct {
	name string
	stop func() error
}

// stopSequence runs steps in order. A failing step is logged and does not skip the rest.
func stopSequence(logger *slog.Logger, steps ...stopStep) func() {
	return func() {
		for _, s := range steps {
			if err := s.stop(); err != nil {
				logger.Error("shutdown step failed", "step", s.name, "error", err)
			}
		}
		logger.Info("server stopped")
	}
}

// purgeOAuthStates removes abandoned OAuth logins until ctx is cancelled.
func purgeOAuthStates(ctx context.Context, repo user.OAuthStateRepository, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				logger.Error("failed to purge oauth states", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired oauth states", "count", n)
			}
		}
	}
}
