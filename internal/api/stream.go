package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// PredictionEvent is pushed to live-feed subscribers after each completed
// prediction.
type PredictionEvent struct {
	CorrelationID  string    `json:"correlationId"`
	TopDisease     string    `json:"topDisease"`
	TopProbability int       `json:"topProbability"`
	RiskLevel      string    `json:"riskLevel"`
	AbnormalCount  int       `json:"abnormalCount"`
	Timestamp      time.Time `json:"timestamp"`
}

// Hub fans prediction events out to connected websocket clients. Slow
// clients are dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	log     *logrus.Logger
}

type hubClient struct {
	conn *websocket.Conn
	send chan PredictionEvent
}

// NewHub creates an empty broadcast hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		log:     logger,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API already allows cross-origin REST calls; the feed follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleLiveFeed upgrades the connection and subscribes it to the feed.
func (h *Hub) HandleLiveFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("Failed to upgrade live feed connection")
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan PredictionEvent, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithField("clients", count).Debug("Live feed client connected")

	go h.writeLoop(client)
	go h.readLoop(client)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event PredictionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			// Client is not keeping up; let its write loop die.
			go h.remove(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		client.conn.Close()
	}
}

// writeLoop pushes events and pings to one client.
func (h *Hub) writeLoop(client *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(client)
	}()

	for {
		select {
		case event, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client messages to process pongs and detect disconnects.
func (h *Hub) readLoop(client *hubClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
