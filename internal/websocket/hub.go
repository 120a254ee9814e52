package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// subscribeFunc streams payloads published on channel until ctx is done.
type subscribeFunc func(ctx context.Context, channel string) <-chan string

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans a user's pub/sub events out to all of that user's open sockets.
// One subscription is held per user while they have at least one socket.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	cancelFuncs map[string]context.CancelFunc
	subscribe   subscribeFunc
	auth        TokenParser
}

func NewHub(redisClient *redis.Client, auth TokenParser) *Hub {
	return newHub(redisSubscriber(redisClient), auth)
}

func newHub(subscribe subscribeFunc, auth TokenParser) *Hub {
	return &Hub{
		connections: make(map[string][]*client),
		cancelFuncs: make(map[string]context.CancelFunc),
		subscribe:   subscribe,
		auth:        auth,
	}
}

func redisSubscriber(rdb *redis.Client) subscribeFunc {
	return func(ctx context.Context, channel string) <-chan string {
		out := make(chan string)
		pubsub := rdb.Subscribe(ctx, channel)
		go func() {
			defer close(out)
			defer pubsub.Close()
			ch := pubsub.Channel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- msg.Payload:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out
	}
}

// HandleWebSocket authenticates via the token query param, since browsers
// cannot set headers on the upgrade request.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := h.auth.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	h.register(userID, c)

	// Reads only detect disconnects; clients never send anything we act on.
	go func() {
		defer h.unregister(userID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], c)

	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.forward(ctx, userID, h.subscribe(ctx, models.UserChannel(userID)))
	}

	logger.L().WithFields(logrus.Fields{"user_id": userID, "connections": len(h.connections[userID])}).Info("websocket connected")
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[userID]
	for i, existing := range conns {
		if existing == c {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	logger.L().WithField("user_id", userID).Info("websocket disconnected")
}

func (h *Hub) forward(ctx context.Context, userID string, payloads <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-payloads:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(p))
		}
	}
}

func (h *Hub) broadcast(userID string, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[userID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			logger.L().WithError(err).WithField("user_id", userID).Debug("websocket write failed")
		}
	}
}

// Connections reports how many sockets the user has open on this instance.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Close drops every socket and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.connections {
		for _, c := range conns {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			c.conn.Close()
		}
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
		}
	}
	h.connections = make(map[string][]*client)
	h.cancelFuncs = make(map[string]context.CancelFunc)
}
