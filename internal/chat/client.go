package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"example.com/fitplan/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 64
)

// Frame types pushed to clients.
const (
	FrameConnected = "connection_established"
	FrameReply     = "chat_reply"
	FrameError     = "error"
)

// Frame is the JSON envelope written to the socket.
type Frame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// inbound is a message read from the socket.
type inbound struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

// Chatter answers chat messages.
type Chatter interface {
	Chat(ctx context.Context, msg domain.ChatMessage) (domain.ChatReply, error)
}

// Client is a WebSocket connection registered in the Hub.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	logger *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(userID string, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(zap.String("user_id", userID), zap.String("connection_id", id)),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Enqueue queues a frame. A closed or full client rejects it.
func (c *Client) Enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) enqueueFrame(frameType string, data any) {
	payload, err := json.Marshal(Frame{Type: frameType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		c.logger.Error("encode frame", zap.Error(err))
		return
	}
	if !c.Enqueue(payload) {
		c.logger.Warn("frame dropped", zap.String("type", frameType))
	}
}

// readPump blocks until the peer disconnects, answering each text message.
func (c *Client) readPump(ctx context.Context, chatter Chatter) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.enqueueFrame(FrameError, map[string]string{"detail": "only text frames are supported"})
			continue
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.enqueueFrame(FrameError, map[string]string{"detail": "message must be a JSON object"})
			continue
		}
		reply, err := chatter.Chat(ctx, domain.ChatMessage{
			UserID:      c.userID,
			Message:     in.Message,
			MessageType: in.MessageType,
		})
		if err != nil {
			detail := "unable to process message"
			if errors.Is(err, domain.ErrInvalidRequest) {
				detail = err.Error()
			}
			c.enqueueFrame(FrameError, map[string]string{"detail": detail})
			continue
		}
		c.enqueueFrame(FrameReply, reply)
	}
}

// writePump drains the send queue to the socket and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
