package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	DBPath        string `env:"DB_PATH" envDefault:"./octofit.db"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@octofit.local"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`
}

type Server struct {
	db       *sql.DB
	router   *mux.Router
	hub      *Hub
	upgrader websocket.Upgrader

	members     *sqlMemberStore
	teams       *sqlTeamStore
	activities  *sqlActivityStore
	workouts    *sqlWorkoutStore
	leaderboard *sqlLeaderboardStore
	rebuilder   *Rebuilder
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

func NewServer(cfg Config) (*Server, error) {
	db, err := initDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := seedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	// Fresh database gets the fixture data so the service is usable out of
	// the box; a populated one is left alone.
	var memberCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM members").Scan(&memberCount); err != nil {
		return nil, err
	}
	if memberCount == 0 {
		if err := populateDB(db); err != nil {
			return nil, fmt.Errorf("failed to populate database: %w", err)
		}
	}

	leaderboard, err := newLeaderboardStore(db)
	if err != nil {
		return nil, err
	}

	hub := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	s := &Server{
		db:     db,
		router: mux.NewRouter(),
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		members:     &sqlMemberStore{db: db},
		teams:       &sqlTeamStore{db: db},
		activities:  &sqlActivityStore{db: db},
		workouts:    &sqlWorkoutStore{db: db},
		leaderboard: leaderboard,
	}

	s.rebuilder = NewRebuilder(s.members, s.activities, s.leaderboard)
	s.rebuilder.onCommit = func(entries []LeaderboardEntry) {
		s.broadcastUpdate("leaderboard-update", map[string]interface{}{
			"leaderboard": entries,
			"stats":       leaderboardStats(entries),
		})
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
			log.Println("Client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Println("Client disconnected")
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
	s.router.HandleFunc("/", s.handleAPIRoot).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/members", s.handleListMembers).Methods("GET")
	api.HandleFunc("/members", s.handleCreateMember).Methods("POST")
	api.HandleFunc("/members/{id}", s.handleGetMember).Methods("GET")
	api.HandleFunc("/teams", s.handleListTeams).Methods("GET")
	api.HandleFunc("/teams", s.handleCreateTeam).Methods("POST")
	api.HandleFunc("/activities", s.handleListActivities).Methods("GET")
	api.HandleFunc("/activities", s.handleCreateActivity).Methods("POST")
	api.HandleFunc("/workouts", s.handleListWorkouts).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleGetLeaderboard).Methods("GET")
	api.HandleFunc("/leaderboard/rebuild", s.handleRebuild).Methods("POST")
	api.HandleFunc("/populate", s.handlePopulate).Methods("POST")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/auth/status", s.handleAuthStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
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
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, server.router); err != nil {
		log.Fatal(err)
	}
}
