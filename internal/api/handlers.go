package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/disasternet/chatd/internal/server"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

type healthResponse struct {
	Status    string `json:"status"`
	Users     int    `json:"users"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, healthResponse{
		Status:    "online",
		Users:     s.cs.UserCount(),
		Room:      s.room,
		Timestamp: server.Now(),
	})
}

func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.cs.History())
}

func (s *Server) users(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.cs.Users())
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	id, err := shortid.Generate()
	if err != nil {
		s.log.Println("error generating connection id:", err)
		conn.Close()
		return
	}

	client := server.NewClient(id, conn, s.cs, s.log)
	s.cs.Register(client)

	go client.Write()
	go client.Read()
}

func (s *Server) writeJson(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Println("error encoding response:", err)
	}
}
