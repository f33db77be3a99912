package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/avvvet/companion-chat/internal/app"
	"github.com/avvvet/companion-chat/internal/config"
)

func main() {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	character := flag.String("character", cfg.DefaultCharacter, "Character to chat with")
	language := flag.String("lang", cfg.DefaultLanguage, "Reply language (zh-TW, zh-CN, en)")
	adult := flag.Bool("adult", cfg.AdultMode, "Enable adult mode")
	verbose := flag.Bool("v", false, "Show service logs")
	flag.Parse()

	cfg.DefaultLanguage = *language
	cfg.AdultMode = *adult
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, nil)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("❌ Failed to initialize conversation core: %v", err)
	}
	defer application.Close()

	console, err := app.NewConsole(application, *character, os.Stdout)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("❌ %v", err)
	}

	if err := console.Run(ctx, os.Stdin); err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("⚠️ %v", err)
	}
}
