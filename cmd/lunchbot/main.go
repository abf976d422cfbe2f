package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wheres-my-lunch/internal/bot"
	"wheres-my-lunch/internal/broker"
	"wheres-my-lunch/internal/config"
	"wheres-my-lunch/internal/notify"
	"wheres-my-lunch/internal/orders"
	"wheres-my-lunch/internal/report"
	"wheres-my-lunch/internal/scheduler"
	"wheres-my-lunch/internal/storage"
	"wheres-my-lunch/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet("lunchbot", flag.ExitOnError)
	mode := fs.String("mode", "bot", "service to run: bot | notification-subscriber")
	configPath := fs.String("config", "config.yaml", "path to the YAML config file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "bot":
		err = runBot(ctx, cfg)
	case "notification-subscriber", "ns":
		err = runSubscriber(ctx, cfg)
	default:
		fmt.Println("unknown mode:", *mode)
		fmt.Println("\nUsage:")
		fs.PrintDefaults()
		fmt.Println("\nExample:")
		fmt.Println("  ./lunchbot --mode=bot --config=config.yaml")
		os.Exit(1)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatalf("%s failed: %v", *mode, err)
	}
}

func runBot(ctx context.Context, cfg *config.Config) error {
	mylog := logger.NewLogger("lunch-bot")
	mylog.Info("startup", "bot_starting", "Starting lunch order bot")

	store, err := storage.Connect(ctx, cfg.Database, mylog)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// The broker only feeds admin notifications; the bot stays useful
	// without it.
	var publisher orders.Publisher
	if b, err := broker.Connect(cfg.RabbitMQ, mylog); err != nil {
		mylog.Warn("startup", "rabbitmq_unavailable", "Running without commit notifications: "+err.Error())
	} else {
		defer b.Close()
		publisher = b
	}

	svc := orders.NewService(store, publisher, cfg.WeekDeadline(), cfg.Location(), mylog)
	renderer := report.NewRenderer(cfg.Company, cfg.ExportDir, mylog)

	telegram, err := bot.NewTelegram(cfg.Telegram.Token, mylog)
	if err != nil {
		return err
	}

	handler := bot.NewHandler(svc, renderer, telegram, cfg.Telegram.AdminID, mylog)

	if cfg.Telegram.AdminID != 0 {
		reminder := scheduler.NewReminder(telegram, svc, cfg.Telegram.AdminID, cfg.WeekDeadline(), cfg.Location(), mylog)
		go reminder.Run(ctx)
	}

	mylog.Info("startup", "bot_started", "Lunch order bot is polling for updates")
	return telegram.Run(ctx, handler)
}

func runSubscriber(ctx context.Context, cfg *config.Config) error {
	mylog := logger.NewLogger("notification-subscriber")

	b, err := broker.Connect(cfg.RabbitMQ, mylog)
	if err != nil {
		return err
	}
	defer b.Close()

	telegram, err := bot.NewTelegram(cfg.Telegram.Token, mylog)
	if err != nil {
		return err
	}

	sub := notify.NewSubscriber(b, telegram, cfg.Telegram.AdminID, mylog)
	return sub.Start(ctx)
}
