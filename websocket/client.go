package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 256

	// Upper bound for handling one inbound location update
	pingTimeout = 10 * time.Second
)

// NewUpgrader builds the HTTP upgrader. An empty allow list accepts any
// origin, which is what native mobile clients send.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

type Client struct {
	// WebSocket connection
	conn *websocket.Conn

	// User information
	userID string
	role   string

	// Connection metadata
	connectionID string
	connectedAt  time.Time
	deviceType   string
	ipAddress    string

	// Buffered channel of outbound messages
	send     chan models.WSMessage
	sendMu   sync.Mutex
	sendDone bool

	// Hub reference
	hub *Hub

	rateLimiter *utils.RateLimiter
}

func NewClient(conn *websocket.Conn, hub *Hub, userID, role string, r *http.Request) *Client {
	return &Client{
		conn:         conn,
		hub:          hub,
		userID:       userID,
		role:         role,
		send:         make(chan models.WSMessage, sendBufferSize),
		connectionID: utils.GenerateUUID(),
		connectedAt:  time.Now(),
		deviceType:   r.Header.Get("X-Device-Type"),
		ipAddress:    getClientIP(r),
		rateLimiter:  utils.NewRateLimiter(60, time.Minute),
	}
}

// ReadPump reads frames until the peer goes away, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{
			"userId":       c.userID,
			"connectionId": c.connectionID,
			"duration":     time.Since(c.connectedAt).Round(time.Second),
		}).Info("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("userId", c.userID).Warn("WebSocket read error")
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.sendError(models.WSErrorRateLimit, "Rate limit exceeded", "")
			continue
		}

		c.handleMessage(messageData)
	}
}

// WritePump drains the send channel until the hub closes it.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.WithError(err).WithField("userId", c.userID).Warn("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(messageData []byte) {
	var request models.WSRequest
	if err := json.Unmarshal(messageData, &request); err != nil {
		c.sendError(models.WSErrorInvalidMessage, "Invalid message format", "")
		return
	}

	switch request.Type {
	case models.WSRequestLocationUpdate:
		c.handleLocationUpdate(request)
	case models.WSTypePing:
		c.trySend(models.WSMessage{Type: models.WSTypePong, RequestID: request.RequestID, Timestamp: time.Now()})
	default:
		c.sendError(models.WSErrorInvalidMessage, "Unknown message type", request.RequestID)
	}
}

// handleLocationUpdate runs inline so a user's pings are applied in the
// order they were sent.
func (c *Client) handleLocationUpdate(request models.WSRequest) {
	if c.hub.pinger == nil {
		c.sendError(models.WSErrorInternal, "Location updates are not accepted on this socket", request.RequestID)
		return
	}

	var ping models.PingRequest
	if err := unmarshalData(request.Data, &ping); err != nil {
		c.sendError(models.WSErrorInvalidMessage, "Invalid location data", request.RequestID)
		return
	}

	ctx, cancel := context.WithTimeout(c.hub.ctx, pingTimeout)
	defer cancel()

	resp, err := c.hub.pinger.Ping(ctx, c.userID, ping)
	if err != nil {
		if utils.IsValidation(err) {
			c.sendError(models.WSErrorInvalidLocation, err.Error(), request.RequestID)
			return
		}
		logrus.WithError(err).WithField("userId", c.userID).Error("WebSocket location update failed")
		c.sendError(models.WSErrorInternal, "Failed to record location", request.RequestID)
		return
	}

	c.trySend(models.WSMessage{
		Type:      models.WSTypeSuccess,
		Data:      resp,
		RequestID: request.RequestID,
		Timestamp: time.Now(),
	})
}

func (c *Client) sendError(code, message, requestID string) {
	now := time.Now()
	c.trySend(models.WSMessage{
		Type: models.WSTypeError,
		Data: models.WSError{
			Code:      code,
			Message:   message,
			Timestamp: now,
		},
		RequestID: requestID,
		Timestamp: now,
	})
}

// trySend queues a message without blocking. It reports false when the
// buffer is full or the client has been unregistered.
func (c *Client) trySend(message models.WSMessage) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendDone {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		logrus.WithField("userId", c.userID).Warn("Send channel full")
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendDone {
		c.sendDone = true
		close(c.send)
	}
}

func unmarshalData(data map[string]interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
