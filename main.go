package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"leetfriends/config"
	"leetfriends/leetcode"
	"leetfriends/store"
	"leetfriends/tracker"
)

type Server struct {
	cfg      *config.Config
	store    *store.Store
	client   *leetcode.Client
	agg      *tracker.Aggregator
	snapshot *tracker.Snapshot
	router   *mux.Router
	hub      *Hub
	upgrader websocket.Upgrader
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewServer(cfg *config.Config) (*Server, error) {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference store: %w", err)
	}

	client := leetcode.NewClient(cfg.GraphQL.Endpoint, cfg.RequestTimeout(), cfg.GraphQL.RequestsPerSecond)
	agg := tracker.New(client, cfg.Feed.DailyLimit)

	hub := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	s := &Server{
		cfg:      cfg,
		store:    db,
		client:   client,
		agg:      agg,
		snapshot: tracker.NewSnapshot(agg, cfg.SnapshotMaxAge()),
		router:   mux.NewRouter(),
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	go s.hub.run()

	return s, nil
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Println("Popup connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Println("Popup disconnected")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (s *Server) setupRoutes() {
	// Popup page and assets
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("./web/static/"))))
	s.router.HandleFunc("/", s.handleHome).Methods("GET")

	// API endpoints
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/user", s.handleGetUser).Methods("GET")
	api.HandleFunc("/user", s.handleSetUser).Methods("PUT")
	api.HandleFunc("/activity", s.handleGetActivity).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleGetLeaderboard).Methods("GET")
	api.HandleFunc("/leaderboard/daily", s.handleGetDailyLeaderboard).Methods("GET")
	api.HandleFunc("/friends", s.handleGetFriends).Methods("GET")
	api.HandleFunc("/friends", s.handleAddFriend).Methods("POST")
	api.HandleFunc("/friends/{username}", s.handleRemoveFriend).Methods("DELETE")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "web/popup.html")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) broadcastUpdate(updateType string, data interface{}) {
	message := map[string]interface{}{
		"type": updateType,
		"data": data,
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling broadcast data: %v", err)
		return
	}

	s.hub.broadcast <- jsonData
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	configPath := os.Getenv("LEETFRIENDS_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer server.store.Close()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, server.router); err != nil {
		log.Fatal(err)
	}
}
