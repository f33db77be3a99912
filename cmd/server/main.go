package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avvvet/companion-chat/internal/app"
	"github.com/avvvet/companion-chat/internal/chat"
	"github.com/avvvet/companion-chat/internal/config"
	"github.com/avvvet/companion-chat/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("🚀 Starting Companion Chat Service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Service: %s", cfg.ServiceName)
	log.Printf("💾 Redis URL: %s", cfg.RedisURL)
	log.Printf("🤖 LLM provider: %s", cfg.LLMProvider)

	ctx := context.Background()

	// NATS is optional; without it conversation updates are not published
	var natsTransport *transport.NATSTransport
	var notifier chat.Notifier
	if cfg.NatsURL != "" {
		log.Println("📡 Connecting to NATS...")
		natsTransport, err = transport.NewNATSTransport(cfg)
		if err != nil {
			log.Fatalf("❌ Failed to initialize NATS transport: %v", err)
		}
		notifier = natsTransport
	}

	application, err := app.New(ctx, cfg, notifier)
	if err != nil {
		log.Fatalf("❌ Failed to initialize conversation core: %v", err)
	}
	services := application.Services()

	if natsTransport != nil {
		if err := natsTransport.Start(services); err != nil {
			log.Fatalf("❌ Failed to start NATS transport: %v", err)
		}
		log.Printf("👂 Listening on subjects: %s.*", cfg.NatsSubjectPrefix)
	}

	httpServer := transport.NewHTTPServer(cfg.HTTPAddr, services, cfg.LLMTimeout)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	log.Println("✅ Companion Chat Service is running!")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("🛑 Received signal: %v", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("❌ %v", err)
		}
	}
	log.Println("🔄 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Error shutting down HTTP server: %v", err)
	}

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			log.Printf("⚠️ Error closing NATS transport: %v", err)
		}
	}

	if err := application.Close(); err != nil {
		log.Printf("⚠️ Error closing storage: %v", err)
	}

	log.Println("👋 Companion Chat Service stopped")
}
