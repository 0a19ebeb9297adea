// Package server provides HTTP server initialization and lifecycle
// management for the Illude API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/illude/illude/internal/auth"
	"github.com/illude/illude/internal/config"
	"github.com/illude/illude/internal/engine"
	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/web/handlers"
)

// version reported by GET /api/health.
const version = "1.0.0"

// Start initializes the router and starts the HTTP server. It returns the
// actual address being listened on (useful for testing with port 0) and the
// WebSocketHub for wiring chapter progress broadcasts. The server shuts down
// gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, stories storage.StoryStore, users storage.UserStore, eng *engine.StoryEngine) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	localOrigins := []string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}
	wsHub := handlers.NewWebSocketHub(localOrigins)
	go wsHub.Run()

	// Chapter progress events flow from the engine through the hub.
	eng.OnChapterStarted = func(ev engine.ChapterEvent) { wsHub.Broadcast(ev) }
	eng.OnChapterCompleted = func(ev engine.ChapterEvent) { wsHub.Broadcast(ev) }

	storyHandler := handlers.NewStoryHandler(stories, users, eng)
	userHandler := handlers.NewUserHandler(users, stories)

	mux.HandleFunc("POST /api/stories/init", storyHandler.InitStory)
	mux.HandleFunc("POST /api/stories", storyHandler.CreateStory)
	mux.HandleFunc("GET /api/stories", storyHandler.ListStories)
	mux.HandleFunc("GET /api/stories/{id}", storyHandler.GetStory)
	mux.HandleFunc("PUT /api/stories/{id}", storyHandler.UpdateStory)
	mux.HandleFunc("DELETE /api/stories/{id}", storyHandler.DeleteStory)
	mux.HandleFunc("GET /api/community-stories", storyHandler.CommunityStories)

	mux.HandleFunc("GET /api/user/bookmarks", userHandler.ListBookmarks)
	mux.HandleFunc("POST /api/user/bookmarks", userHandler.ManageBookmark)
	mux.HandleFunc("GET /api/user/profile", userHandler.GetProfile)
	mux.HandleFunc("PUT /api/user/profile", userHandler.UpdateProfile)

	// Chapter generation carries its own rate limit: each request costs up
	// to three backend calls. Continuation is owner-only, so the route also
	// rejects anonymous requests before they reach the handler.
	generateHandler := handlers.RequireAuth(http.HandlerFunc(storyHandler.GenerateChapter))
	if cfg.Server.RateLimit > 0 {
		rl := handlers.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimit)
		generateHandler = handlers.RateLimitMiddleware(generateHandler, rl)
	}
	mux.Handle("POST /api/stories/{id}/chapters", generateHandler)

	mux.Handle("GET /ws", wsHub)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, version)
	})

	provider := sessionProvider(cfg)
	handler := handlers.WithSession(mux, provider)
	handler = handlers.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Chapter generation waits on up to three sequential backend calls.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub, nil
}

// sessionProvider builds the auth provider from the configuration.
func sessionProvider(cfg *config.Config) auth.Provider {
	if cfg.Auth.Mode == "header" {
		return auth.HeaderProvider{}
	}
	return auth.StaticProvider{Session: auth.Session{
		UserID: cfg.Auth.StaticUserID,
		Email:  cfg.Auth.StaticUserEmail,
		Name:   cfg.Auth.StaticUserName,
	}}
}
