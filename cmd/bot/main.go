package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"random_coffee_bot/internal/app"
	"random_coffee_bot/internal/infra/config"
	idb "random_coffee_bot/internal/infra/database"
	"random_coffee_bot/internal/infra/logger"
	"random_coffee_bot/internal/infra/scheduler"
	"random_coffee_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Random Coffee Bot starting...")

	mainLogger := log.New(os.Stdout, "MAIN: ", log.LstdFlags|log.Lshortfile)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger.Printf("INFO: Configuration loaded. LogLevel: %s, Environment: %s, Admin ID: %d", cfg.LogLevel, cfg.Environment, cfg.AdminTelegramID)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLogger.Println("INFO: Database connection established successfully.")

	if err := idb.RunMigrations(ctx, db); err != nil {
		mainLogger.Fatalf("FATAL: Could not apply database migrations: %v", err)
	}
	mainLogger.Println("INFO: Database migrations applied.")

	// Initialize Repositories
	memberRepo := idb.NewPostgresMemberRepository(db)
	mainLogger.Println("INFO: Member repository initialized.")
	matchingRepo := idb.NewPostgresMatchingRepository(db)
	mainLogger.Println("INFO: Matching repository initialized.")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			log.Printf("ERROR (telebot): %v", err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				log.Printf("ERROR (telebot context): Message: %s, Sender: %d, Chat: %d", c.Text(), c.Sender().ID, c.Chat().ID)
			}
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}

	// Initialize Services
	collectionWindow := time.Duration(cfg.CollectionWindowHours) * time.Hour
	matchingSvcLogger := log.New(os.Stdout, "MATCHING_SVC: ", log.LstdFlags|log.Lshortfile)
	matchingService := app.NewMatchingServiceImpl(
		memberRepo,
		matchingRepo,
		telegram.NewTelebotAdapter(bot),
		matchingSvcLogger,
		cfg.RecencyWindowDays,
		collectionWindow,
	)
	mainLogger.Println("INFO: Matching service initialized.")

	adminService := app.NewAdminService(memberRepo, matchingRepo, matchingService, cfg.AdminTelegramID, cfg.RecencyWindowDays)
	mainLogger.Println("INFO: Admin service initialized.")

	// Initialize MatchingScheduler
	schedulerLogger := log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags|log.Lshortfile)
	matchingScheduler := scheduler.NewMatchingScheduler(
		matchingService,
		schedulerLogger,
		cfg.CronSpecOpenMatching,
		cfg.CronSpecCommitPairing,
	)
	matchingScheduler.Start() // Start the cron jobs

	// Register Handlers
	baseLogger := logger.Get().WithField("component", "telegram")
	telegram.RegisterBotCommands(ctx, bot, cfg, memberRepo, baseLogger)
	telegram.RegisterMemberResponseHandlers(ctx, bot, matchingService, memberRepo)
	telegram.RegisterAdminHandlers(ctx, bot, adminService, cfg.AdminTelegramID, collectionWindow, baseLogger)
	mainLogger.Println("INFO: Command and callback handlers registered.")

	mainLogger.Println("INFO: Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Println("INFO: Shutting down application...")
	matchingScheduler.Stop()
	bot.Stop()
	mainLogger.Println("INFO: Application shut down gracefully.")
}
