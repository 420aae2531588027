package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"touristsafety/models"

	"github.com/sirupsen/logrus"
)

// LocationPinger accepts location updates sent over an open socket.
type LocationPinger interface {
	Ping(ctx context.Context, userID string, req models.PingRequest) (*models.PingResponse, error)
}

type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// A user may hold several sockets, one per device
	userClients map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Send message to specific user
	sendToUser chan UserMessage

	pinger LocationPinger

	// Hub statistics
	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
	startTime        time.Time

	// Mutex for thread safety
	mutex sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type UserMessage struct {
	UserID  string
	Message models.WSMessage
}

func NewHub(pinger LocationPinger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		sendToUser:  make(chan UserMessage, 1024),
		pinger:      pinger,
		startTime:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetLocationPinger installs the handler for location_update frames. It must
// be called before Run.
func (h *Hub) SetLocationPinger(pinger LocationPinger) {
	h.pinger = pinger
}

func (h *Hub) Run() {
	logrus.Info("WebSocket Hub starting...")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case userMessage := <-h.sendToUser:
			h.sendMessageToUser(userMessage)

		case <-h.ctx.Done():
			h.closeAll()
			logrus.Info("WebSocket Hub shutting down...")
			return
		}
	}
}

// Register hands a connected client to the hub. It returns false once the
// hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true
	h.totalConnections.Add(1)

	logrus.WithFields(logrus.Fields{
		"userId":       client.userID,
		"role":         client.role,
		"connectionId": client.connectionID,
		"device":       client.deviceType,
		"ip":           client.ipAddress,
		"active":       len(h.clients),
	}).Info("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if sockets := h.userClients[client.userID]; sockets != nil {
		delete(sockets, client)
		if len(sockets) == 0 {
			delete(h.userClients, client.userID)
		}
	}
	client.closeSend()

	logrus.WithFields(logrus.Fields{
		"userId":       client.userID,
		"connectionId": client.connectionID,
		"active":       len(h.clients),
	}).Info("Client unregistered")
}

func (h *Hub) sendMessageToUser(userMessage UserMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.userClients[userMessage.UserID] {
		if client.trySend(userMessage.Message) {
			h.messagesSent.Add(1)
		} else {
			h.messagesDropped.Add(1)
		}
	}
}

// SendToUser queues a message for every socket the user has open. Users
// without a socket are skipped silently; a saturated hub drops the message.
func (h *Hub) SendToUser(userID string, message models.WSMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	select {
	case h.sendToUser <- UserMessage{UserID: userID, Message: message}:
	default:
		h.messagesDropped.Add(1)
		logrus.WithField("userId", userID).Warn("WebSocket hub queue full, dropping message")
	}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.userClients[userID]) > 0
}

func (h *Hub) GetConnectedUsers() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) GetStats() models.WSHubStats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return models.WSHubStats{
		ActiveConnections: len(h.clients),
		ConnectedUsers:    len(h.userClients),
		TotalConnections:  h.totalConnections.Load(),
		MessagesSent:      h.messagesSent.Load(),
		MessagesDropped:   h.messagesDropped.Load(),
		StartTime:         h.startTime,
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.closeSend()
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down WebSocket Hub...")
	h.cancel()
}
