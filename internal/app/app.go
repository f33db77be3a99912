package app

import (
	"context"
	"fmt"
	"log"

	"github.com/avvvet/companion-chat/internal/characters"
	"github.com/avvvet/companion-chat/internal/chat"
	"github.com/avvvet/companion-chat/internal/config"
	"github.com/avvvet/companion-chat/internal/handlers"
	"github.com/avvvet/companion-chat/internal/llm"
	"github.com/avvvet/companion-chat/internal/memory"
	"github.com/avvvet/companion-chat/internal/summarizer"
	"github.com/avvvet/companion-chat/internal/transport"
)

// App is the wired conversation core shared by the server and the terminal client
type App struct {
	Config       *config.Config
	Catalogue    *characters.Catalogue
	Store        *memory.Manager
	Provider     llm.Provider
	Chat         *handlers.ChatHandler
	Summarize    *handlers.SummarizeHandler
	Orchestrator *chat.Orchestrator
}

// New wires storage, the LLM provider, the services and the orchestrator.
// notifier may be nil.
func New(ctx context.Context, cfg *config.Config, notifier chat.Notifier) (*App, error) {
	catalogue, err := loadCatalogue(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("📚 Loaded %d characters", len(catalogue.List()))

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	log.Printf("🤖 LLM provider: %s", provider.Name())

	primary, fallback := openStores(cfg)
	store := memory.NewManager(primary, fallback, MemoryOptions(cfg))

	handlerOpts := handlers.OptionsFromConfig(cfg)
	chatHandler := handlers.NewChatHandler(provider, catalogue, handlerOpts)
	summarizeHandler := handlers.NewSummarizeHandler(provider, handlerOpts)

	summ := summarizer.New(summarizeHandler, SummarizerOptions(cfg))
	orch := chat.NewOrchestrator(catalogue, store, chatHandler, summ, notifier, ChatOptions(cfg))

	return &App{
		Config:       cfg,
		Catalogue:    catalogue,
		Store:        store,
		Provider:     provider,
		Chat:         chatHandler,
		Summarize:    summarizeHandler,
		Orchestrator: orch,
	}, nil
}

// Services exposes the app to the transports
func (a *App) Services() *transport.Services {
	return &transport.Services{
		Chat:         a.Chat,
		Summarize:    a.Summarize,
		Orchestrator: a.Orchestrator,
		Catalogue:    a.Catalogue,
	}
}

// Close waits for background summaries, then closes the storage channels
func (a *App) Close() error {
	a.Orchestrator.Close()
	return a.Store.Close()
}

func loadCatalogue(cfg *config.Config) (*characters.Catalogue, error) {
	if cfg.CharactersFile == "" {
		return characters.Default()
	}
	catalogue, err := characters.Load(cfg.CharactersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load characters from %s: %w", cfg.CharactersFile, err)
	}
	return catalogue, nil
}

// openStores connects both channels. An unreachable Redis degrades to an
// in-process primary; an unusable Bolt file disables the fallback channel.
func openStores(cfg *config.Config) (primary, fallback memory.Store) {
	log.Println("🔌 Connecting to Redis...")
	redisStore, err := memory.NewRedisStore(cfg.RedisURL, cfg.StorageOpTimeout)
	if err != nil {
		log.Printf("⚠️ Redis unavailable, keeping conversations in process: %v", err)
		primary = memory.NewMemStore(0)
	} else {
		log.Println("✅ Redis connected")
		primary = redisStore
	}

	boltStore, err := memory.NewBoltStore(cfg.BoltPath, cfg.FallbackMaxBytes)
	if err != nil {
		log.Printf("⚠️ Fallback storage disabled: %v", err)
		return primary, nil
	}
	log.Printf("💾 Fallback storage: %s", cfg.BoltPath)
	return primary, boltStore
}

// MemoryOptions maps the storage settings onto memory options
func MemoryOptions(cfg *config.Config) memory.Options {
	opts := memory.DefaultOptions()
	opts.KeyPrefix = cfg.StorageKeyPrefix
	opts.FallbackPrefix = cfg.FallbackKeyPrefix
	opts.IndexPrefix = cfg.IndexKeyPrefix
	opts.SummaryPrefix = cfg.SummaryKeyPrefix
	opts.MaxMessages = cfg.MaxMessages
	opts.FallbackMaxBytes = cfg.FallbackMaxBytes
	opts.Retention = cfg.HistoryRetention
	return opts
}

func SummarizerOptions(cfg *config.Config) summarizer.Options {
	opts := summarizer.DefaultOptions()
	opts.Threshold = cfg.SummaryThreshold
	opts.PriorMessages = cfg.SummaryPriorMessages
	return opts
}

func ChatOptions(cfg *config.Config) chat.Options {
	opts := chat.DefaultOptions()
	opts.Language = cfg.DefaultLanguage
	opts.Adult = cfg.AdultMode
	opts.Context = handlers.OptionsFromConfig(cfg).Context
	return opts
}
