package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scrypster/notewell/internal/api/tools"
	"github.com/scrypster/notewell/internal/config"
	"github.com/scrypster/notewell/internal/engine"
	"github.com/scrypster/notewell/internal/llm"
	"github.com/scrypster/notewell/internal/server"
	"github.com/scrypster/notewell/internal/storage"
	"github.com/scrypster/notewell/internal/storage/postgres"
	"github.com/scrypster/notewell/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default: NOTEWELL_CONFIG_FILE)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFromFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	notes, vectors, folders, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer notes.Close()

	client, err := llm.NewEmbeddingClient(llm.Config{
		Provider:      cfg.Embedding.Provider,
		Model:         cfg.Embedding.Model,
		Timeout:       time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		OllamaURL:     cfg.Embedding.OllamaURL,
		OpenAIAPIKey:  cfg.Embedding.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Embedding.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize embedding client: %v", err)
	}
	log.Printf("notewell: embedding provider ready (model: %s)", client.Model())

	embedder := engine.NewEmbeddingManager(notes, client)
	assembler := engine.NewContextAssembler(notes, vectors, embedder)
	dispatcher := tools.NewDispatcher(notes, folders, vectors, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _ := server.Start(ctx, cfg, assembler, embedder, dispatcher)
	log.Printf("Notewell API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStorage builds the configured backend. Both backends implement
// NoteStore and VectorSearcher on the same value.
func openStorage(cfg *config.Config) (storage.NoteStore, storage.VectorSearcher, storage.FolderStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.NewNoteStore(cfg.Storage.PostgresDSN, cfg.Embedding.Dimension)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, postgres.NewFolderStore(store.GetDB()), nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, nil, nil, err
		}
		store, err := sqlite.NewNoteStore(cfg.Storage.DataPath + "/notewell.db")
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, sqlite.NewFolderStore(store.GetDB()), nil
	}
}
