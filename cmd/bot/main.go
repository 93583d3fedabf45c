package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/baraholka/marketbot/internal/api/http"
	"github.com/baraholka/marketbot/internal/api/http/handlers"
	"github.com/baraholka/marketbot/internal/bot"
	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/events"
	"github.com/baraholka/marketbot/internal/observability"
	"github.com/baraholka/marketbot/internal/persistence"
	"github.com/baraholka/marketbot/internal/repository"
	"github.com/baraholka/marketbot/internal/service"
	"github.com/baraholka/marketbot/internal/session"
	"github.com/baraholka/marketbot/internal/telegram"
	"github.com/baraholka/marketbot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("failed to connect telegram", zap.Error(err))
	}
	logger.Info("authorized bot", zap.String("username", api.Self.UserName))

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	referralRepo := repository.NewReferralRepository(pool)

	var sessions session.Store
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, conversation contexts will not survive restarts")
		sessions = session.NewMemoryStore()
	} else {
		sessions = session.NewRedisStore(redis.Client, cfg.Chat.SessionTTL)
	}

	dispatcher := events.NewInMemoryDispatcher()
	transport := telegram.NewBotTransport(api, logger)
	metrics := observability.NewMetrics()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Config:      cfg.Tickets,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		Sessions:    sessions,
		Transport:   transport,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Config:      cfg.Chat,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:     userRepo,
		ReferralRepo: referralRepo,
		PostRepo:     postRepo,
		Dispatcher:   dispatcher,
		Privileges:   cfg.Privileges,
	})
	postService := service.NewPostService(service.PostDependencies{
		PostRepo:  postRepo,
		Users:     userService,
		Transport: transport,
		Logger:    logger,
		Telegram:  cfg.Telegram,
	})
	notificationService := service.NewNotificationService(dispatcher, transport, logger, cfg.Telegram)
	worker.StartNotificationWorker(notificationService)

	router := bot.NewRouter(bot.RouterDependencies{
		Tickets:     ticketService,
		Chats:       chatService,
		Users:       userService,
		Posts:       postService,
		Sessions:    sessions,
		Transport:   transport,
		Logger:      logger,
		Metrics:     metrics,
		Config:      cfg,
		BotUsername: api.Self.UserName,
	})
	sequencer := bot.NewSequencer()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, "1.0.0", pg, redis)
	routeCfg := httptransport.RouteConfig{Health: healthHandler}

	useWebhook := cfg.Telegram.WebhookURL != ""
	if useWebhook {
		routeCfg.Webhook = handlers.NewWebhookHandler(router, sequencer, logger, cfg.Telegram.WebhookSecret)
	}
	httptransport.RegisterRoutes(app, routeCfg)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	if useWebhook {
		registerWebhook(api, cfg.Telegram, logger)
	} else {
		go pollUpdates(ctx, api, router, sequencer, logger)
	}

	waitForShutdown(logger)

	cancel()
	if !useWebhook {
		api.StopReceivingUpdates()
	}
	sequencer.Wait()
	_ = app.Shutdown()
}

func registerWebhook(api *tgbotapi.BotAPI, cfg config.TelegramConfig, logger *zap.Logger) {
	wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
	if err != nil {
		logger.Fatal("bad webhook url", zap.Error(err))
	}
	if _, err := api.Request(wh); err != nil {
		logger.Fatal("webhook registration failed", zap.Error(err))
	}
	logger.Info("webhook registered", zap.String("url", cfg.WebhookURL))
}

func pollUpdates(ctx context.Context, api *tgbotapi.BotAPI, router *bot.Router, sequencer *bot.Sequencer, logger *zap.Logger) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30

	updates := api.GetUpdatesChan(updateCfg)
	logger.Info("long polling started")
	for update := range updates {
		actorID := bot.ActorID(update)
		if actorID == 0 {
			continue
		}
		update := update
		sequencer.Do(actorID, func() {
			router.HandleUpdate(ctx, update)
		})
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
