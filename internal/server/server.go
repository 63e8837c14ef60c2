// Package server provides HTTP server initialization and lifecycle management
// for the Notewell API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/scrypster/notewell/internal/api/tools"
	"github.com/scrypster/notewell/internal/config"
	"github.com/scrypster/notewell/internal/engine"
	"github.com/scrypster/notewell/web/handlers"
)

// Start initializes and starts the HTTP server. Returns the actual address
// being listened on (useful for testing with port 0) and the EventHub for
// wiring embedding event broadcasts. The caller cancels ctx to shut down.
func Start(ctx context.Context, cfg *config.Config, assembler *engine.ContextAssembler, embedder *engine.EmbeddingManager, dispatcher *tools.Dispatcher) (string, *handlers.EventHub) {
	mux := http.NewServeMux()

	hub := handlers.NewEventHub([]string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	})
	go hub.Run()

	// Every persisted embedding is announced to connected UI clients.
	if embedder != nil {
		embedder.SetOnEmbedded(func(noteID string) {
			hub.Broadcast(handlers.NewNoteEvent(handlers.EventNoteEmbedded, noteID))
		})
	}

	rateLimiter := handlers.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	contextHandler := handlers.NewContextHandler(assembler)
	embeddingsHandler := handlers.NewEmbeddingsHandler(embedder, hub, cfg.Context.StaleBatchSize)
	toolsHandler := handlers.NewToolsHandler(dispatcher)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/context", contextHandler.Gather)
	apiMux.HandleFunc("/api/embeddings/batch", embeddingsHandler.Batch)
	apiMux.HandleFunc("/api/embeddings/mark-stale", embeddingsHandler.MarkStale)
	apiMux.HandleFunc("/api/tools", toolsHandler.Dispatch)

	// Health endpoint, no auth required, used by monitoring
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws", hub)

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = handlers.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("server: failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
		hub.Stop()
	}()

	return actualAddr, hub
}
