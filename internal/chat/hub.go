package chat

import (
	"errors"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"storefront-service/internal/sharding"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "chat").Logger()

var ErrNotConnected = errors.New("user is not connected")

// Conn is the part of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	conn Conn
	mu   sync.Mutex // one writer at a time per connection
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

type shard struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// Hub tracks the live WebSocket connection of each user. Users are spread over
// independently locked shards so connects and sends of different users rarely
// contend.
type Hub struct {
	router *sharding.ShardRouter
	shards []*shard
}

func NewHub(router *sharding.ShardRouter) *Hub {
	shards := make([]*shard, router.ShardCount)
	for i := range shards {
		shards[i] = &shard{clients: map[string]*client{}}
	}
	return &Hub{router: router, shards: shards}
}

func (h *Hub) shardFor(userID string) *shard {
	return h.shards[h.router.GetShard(userID)]
}

// Add registers conn for the user. An older connection of the same user is
// closed and replaced.
func (h *Hub) Add(userID string, conn Conn) {
	s := h.shardFor(userID)
	s.mu.Lock()
	old := s.clients[userID]
	s.clients[userID] = &client{conn: conn}
	s.mu.Unlock()

	if old != nil && old.conn != conn {
		if err := old.conn.Close(); err != nil {
			logger.Warn().Err(err).Msgf("Error closing previous connection of user %s", userID)
		}
	}
	logger.Info().Msgf("User %s connected", userID)
}

// Remove unregisters conn. It does nothing if the user has since reconnected
// with another connection.
func (h *Hub) Remove(userID string, conn Conn) {
	s := h.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[userID]; ok && c.conn == conn {
		delete(s.clients, userID)
		logger.Info().Msgf("User %s disconnected", userID)
	}
}

// Send writes a text message to the user's connection.
func (h *Hub) Send(userID string, message []byte) error {
	s := h.shardFor(userID)
	s.mu.RLock()
	c, ok := s.clients[userID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	return c.write(websocket.TextMessage, message)
}

// Count returns the number of connected users.
func (h *Hub) Count() int {
	n := 0
	for _, s := range h.shards {
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}
