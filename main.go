package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/internal/channel"
	"github.com/mkrylov/channelpass-bot/internal/config"
	"github.com/mkrylov/channelpass-bot/internal/handlers"
	"github.com/mkrylov/channelpass-bot/internal/httpapi"
	"github.com/mkrylov/channelpass-bot/internal/ledger"
	"github.com/mkrylov/channelpass-bot/internal/logger"
	"github.com/mkrylov/channelpass-bot/internal/middleware"
	"github.com/mkrylov/channelpass-bot/internal/notify"
	"github.com/mkrylov/channelpass-bot/internal/payment"
	"github.com/mkrylov/channelpass-bot/internal/sweeper"
	"github.com/mkrylov/channelpass-bot/internal/verify"
	"github.com/mkrylov/channelpass-bot/store"
	"github.com/mkrylov/channelpass-bot/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init("channelpass-bot", cfg.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rdb, err := store.NewRedisClient(redisAddr, cfg.Redis.Password, cfg.Redis.DB, "channelpass")
	if err != nil {
		log.Fatal().Err(err).Msg("connect to redis")
	}
	defer rdb.Close()

	stateStore := store.NewRedisStateStore(rdb, 24)

	pgStore, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pgStore.Close()

	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
	}
	pollTimeout := 50 * time.Second

	b, err := bot.New(
		cfg.Telegram.BotToken,
		bot.WithHTTPClient(pollTimeout, httpClient),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create bot")
	}

	cat := catalog.FromConfig(cfg)
	payments := payment.NewManager(cat, pgStore)
	ledgerSvc := ledger.New(pgStore, cat)
	notifier := notify.NewTelegram(b, stateStore)

	gateway := channel.NewBotGateway(b, cfg.Telegram.ChannelID)
	reconciler := channel.NewReconciler(gateway, pgStore)

	var onchain types.OnChainVerifier = verify.NewTonAPIVerifier(cfg.TonAPI.BaseURL, cfg.TonAPI.Token)
	verifier := verify.NewService(pgStore, ledgerSvc, reconciler, notifier, onchain, cat, verify.Config{
		Mode:        types.ParseVerifyMode(cfg.Verify.Mode),
		Delay:       cfg.Verify.Delay,
		AdminChatID: cfg.Telegram.AdminChatID,
	})

	sweep := sweeper.New(pgStore, ledgerSvc, reconciler, notifier, cfg.Sweep.Interval)
	sweep.Start()
	defer sweep.Stop()

	api := httpapi.New(strconv.Itoa(cfg.HTTP.Port), stateStore, cfg.Debug)
	api.Start()
	defer api.Stop(context.Background())

	h := handlers.NewHandlers(pgStore, payments, cat, verifier, stateStore, notifier)
	middlewares := middleware.NewMessageAnalyzer(pgStore)

	handlerChain := middlewares.UpsertProfileMiddleware(
		middlewares.AnalyzeMessageMiddleware(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	log.Info().Str("verify_mode", cfg.Verify.Mode).Msg("bot started")
	b.Start(ctx)
}
