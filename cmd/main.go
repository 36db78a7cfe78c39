package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/classifier"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/dialogflow"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/geocode"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/stripe"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/whatsapp"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/db"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dedup"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/handlers"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/lifecycle"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/observability"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/server"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/session"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/sweeper"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn("OTel shutdown failed", "error", err)
		}
	}()

	// Postgres
	log.Info("Connecting to Postgres...")
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	categoryRepo := repos.NewCategoryRepo(thePG, log)
	addressRepo := repos.NewAddressRepo(thePG, log)
	jobRepo := repos.NewJobRepo(thePG, log)
	chatSessionRepo := repos.NewChatSessionRepo(thePG, log)

	// Dedup: Redis when configured, in-process otherwise.
	var deduper dedup.Deduplicator
	if envutil.String("REDIS_ADDR", "") != "" {
		deduper, err = dedup.NewRedis(log)
		if err != nil {
			log.Error("Redis dedup init failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("REDIS_ADDR not set, message dedup is in-process only")
		deduper = dedup.NewMemory(envutil.Duration("DEDUP_TTL", dedup.DefaultTTL))
	}
	defer deduper.Close()

	// Clients
	log.Info("Setting up clients...")
	waClient, err := whatsapp.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init WhatsApp client", "error", err)
		os.Exit(1)
	}
	nluClient, err := dialogflow.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Dialogflow client", "error", err)
		os.Exit(1)
	}
	stripeClient, err := stripe.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Stripe client", "error", err)
		os.Exit(1)
	}
	geocodeClient, err := geocode.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init geocode client", "error", err)
		os.Exit(1)
	}
	classifierClient, err := classifier.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init classifier client", "error", err)
		os.Exit(1)
	}

	notifier, err := notify.New(log, waClient)
	if err != nil {
		log.Error("Could not init notifier", "error", err)
		os.Exit(1)
	}
	sessionResolver, err := session.NewResolver(log, chatSessionRepo, envutil.Duration("SESSION_CACHE_TTL", 30*time.Minute))
	if err != nil {
		log.Error("Could not init session resolver", "error", err)
		os.Exit(1)
	}

	// Job lifecycle engine and fulfillment routing
	engine, err := lifecycle.NewEngine(log, lifecycle.ConfigFromEnv(), lifecycle.Deps{
		Users:      userRepo,
		Categories: categoryRepo,
		Addresses:  addressRepo,
		Jobs:       jobRepo,
		Sessions:   sessionResolver,
		Stripe:     stripeClient,
		Geocoder:   geocodeClient,
		Classifier: classifierClient,
		Notifier:   notifier,
	})
	if err != nil {
		log.Error("Could not init lifecycle engine", "error", err)
		os.Exit(1)
	}
	dialogRouter, err := dialog.NewRouter(log)
	if err != nil {
		log.Error("Could not init dialog router", "error", err)
		os.Exit(1)
	}
	if err := engine.RegisterHandlers(dialogRouter); err != nil {
		log.Error("Could not register dialog handlers", "error", err)
		os.Exit(1)
	}

	// Stale-job sweeper
	jobSweeper, err := sweeper.New(log, sweeper.ConfigFromEnv(), jobRepo)
	if err != nil {
		log.Error("Could not init sweeper", "error", err)
		os.Exit(1)
	}
	if err := jobSweeper.Start(); err != nil {
		log.Error("Could not start sweeper", "error", err)
		os.Exit(1)
	}
	defer jobSweeper.Stop()

	// Handlers
	log.Info("Setting up handlers...")
	webhookHandler, err := handlers.NewWebhookHandler(
		log,
		handlers.WebhookConfig{VerifyToken: envutil.String("WHATSAPP_VERIFY_TOKEN", "")},
		userRepo,
		sessionResolver,
		deduper,
		nluClient,
		engine,
		notifier,
	)
	if err != nil {
		log.Error("Could not init webhook handler", "error", err)
		os.Exit(1)
	}
	dialogflowHandler, err := handlers.NewDialogflowHandler(log, dialogRouter)
	if err != nil {
		log.Error("Could not init dialogflow handler", "error", err)
		os.Exit(1)
	}
	paymentHandler, err := handlers.NewPaymentHandler(log, engine)
	if err != nil {
		log.Error("Could not init payment handler", "error", err)
		os.Exit(1)
	}

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		Log:               log,
		WebhookHandler:    webhookHandler,
		DialogflowHandler: dialogflowHandler,
		PaymentHandler:    paymentHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(":" + port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error("Server failed", "error", err)
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
	}
}
