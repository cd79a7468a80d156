package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"embedchat-backend/internal/api"
	"embedchat-backend/internal/assembler"
	"embedchat-backend/internal/config"
	"embedchat-backend/internal/crypto"
	"embedchat-backend/internal/files"
	"embedchat-backend/internal/handlers"
	"embedchat-backend/internal/providers"
	"embedchat-backend/internal/services"
	"embedchat-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting EmbedChat Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)

	aead, err := crypto.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to create AES-GCM cipher: %v", err)
	}

	// --- Provider Registry ---
	registry := providers.NewRegistry()
	registry.Register(providers.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.ProviderTimeout))
	registry.Register(providers.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ProviderTimeout))
	registry.Register(providers.NewDummy())
	log.Printf("Provider registry initialized: %v (default: %s)", registry.Names(), cfg.DefaultProvider)

	// --- Prompt Assembler ---
	asm := assembler.New(assembler.Config{
		TotalTokenBudget: cfg.TotalTokenBudget,
		HistoryTurnCount: cfg.HistoryTurnCount,
	})
	log.Printf("Prompt assembler initialized: budget=%d tokens, history=%d turns",
		asm.Config().TotalTokenBudget, asm.Config().HistoryTurnCount)

	// --- Services ---
	authService := services.NewAuthService(pgStore, cfg)
	clientService := services.NewClientService(pgStore, aead)
	sessionService := services.NewSessionService(pgStore, cfg.SessionTTL)
	fileService := services.NewFileService(pgStore, files.NewProcessor(cfg.MaxUploadBytes))
	chatService := services.NewChatService(pgStore, registry, clientService, asm, cfg)
	log.Println("Services initialized.")

	// --- Handlers ---
	routerDeps := api.RouterDependencies{
		AuthHandler:    handlers.NewAuthHandler(authService),
		ClientHandler:  handlers.NewClientHandler(clientService),
		SessionHandler: handlers.NewSessionHandler(sessionService),
		ChatHandler:    handlers.NewChatHandler(chatService),
		FileHandler:    handlers.NewFileHandler(fileService, cfg.MaxUploadBytes),
		WidgetHandler:  handlers.NewWidgetHandler(),
		Store:          pgStore,
		Config:         cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 4. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second, // provider calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
