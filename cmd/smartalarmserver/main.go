package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mjahr/smartalarmserver/internal/api"
	"github.com/mjahr/smartalarmserver/internal/config"
	"github.com/mjahr/smartalarmserver/internal/log"
	"github.com/mjahr/smartalarmserver/internal/notify"
	"github.com/mjahr/smartalarmserver/internal/session"
	"github.com/mjahr/smartalarmserver/internal/state"
)

func main() {
	configFile := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewLogger(cfg.Log)
	logger.Info("Alarm server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := state.New(cfg.Server.MaxEvents, cfg.Server.MaxAllEvents, config.NameTable(cfg.Partitions))
	dispatcher := notify.NewDispatcher()

	sess := session.New(&cfg.Envisalink, store, dispatcher,
		config.NameTable(cfg.Zones), config.NameTable(cfg.Users), logger)

	if cfg.Webhook.URLBase != "" {
		webhook := notify.NewWebhook(&cfg.Webhook, logger)
		webhook.Start(ctx)
		dispatcher.Register(webhook)
	}

	if cfg.MQTT.Host != "" {
		mqttNotifier := notify.NewMQTT(&cfg.MQTT, sess, config.NameTable(cfg.Partitions), logger)
		if err := mqttNotifier.Connect(); err != nil {
			logger.Error("Failed to connect to MQTT broker: %v", err)
			os.Exit(1)
		}
		dispatcher.Register(mqttNotifier)
		defer mqttNotifier.Close()
	}

	go sess.Run(ctx)

	apiServer := api.New(&cfg.Server, store, sess, logger)
	if err := apiServer.Run(ctx); err != nil {
		logger.Error("HTTP server failed: %v", err)
	}

	logger.Info("Shutting down...")
}
