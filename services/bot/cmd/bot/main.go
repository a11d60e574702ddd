package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"bookreview/internal/util"
	"bookreview/pkg/googlebooks"
	"bookreview/services/bot/internal/apiclient"
	"bookreview/services/bot/internal/bot"
	"bookreview/services/bot/internal/config"
	"bookreview/services/bot/internal/session"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("failed to init telegram api: %v", err)
	}

	var sessions session.Store
	if cfg.RedisAddr != "" {
		sessions = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL())
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL())
	}

	handler, err := bot.New(bot.Config{
		Sender:   api,
		Sessions: sessions,
		API:      apiclient.NewClient(cfg.APIBaseURL),
		Catalog:  googlebooks.NewClient(cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey),
	})
	if err != nil {
		log.Fatalf("failed to init bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = 30
		updates := api.GetUpdatesChan(updateConfig)
		slog.Info("review bot polling", "bot", api.Self.UserName)
		for {
			select {
			case <-ctx.Done():
				api.StopReceivingUpdates()
				return nil
			case update, ok := <-updates:
				if !ok {
					return nil
				}
				handler.HandleUpdate(ctx, update)
			}
		}
	})

	if cfg.HealthPort != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		srv := &http.Server{Addr: ":" + cfg.HealthPort, Handler: mux}
		group.Go(func() error {
			slog.Info("health endpoint listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("bot error", "err", err)
	}
	slog.Info("review bot stopped")
}
