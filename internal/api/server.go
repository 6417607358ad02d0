package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/disasternet/chatd/internal/config"
	"github.com/disasternet/chatd/internal/server"
	"github.com/gorilla/handlers"
)

// Server exposes the websocket endpoint and the read-only status surface.
type Server struct {
	log            *log.Logger
	cs             *server.ChatServer
	room           string
	allowedOrigins []string
	srv            *http.Server
}

func NewServer(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, cfg *config.Config) *Server {
	s := &Server{
		log:            logger,
		cs:             cs,
		room:           cfg.Room,
		allowedOrigins: cfg.AllowedOrigins(),
	}

	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/messages", s.messages)
	mux.HandleFunc("GET /api/users", s.users)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(s.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	s.srv = &http.Server{
		Addr:    cfg.Addr(),
		Handler: h,
	}

	return s
}

func (s *Server) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
