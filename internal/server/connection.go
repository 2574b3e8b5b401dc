package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Message is a WebSocket request. Type is one of the Action names.
type Message struct {
	RequestID string `json:"requestId,omitempty"`
	Type      string `json:"type"`
	ActionRequest
}

// Reply answers one Message
type Reply struct {
	RequestID string         `json:"requestId,omitempty"`
	Type      string         `json:"type"`
	Data      any            `json:"data,omitempty"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// Connection is one WebSocket client. Actions are dispatched in the order
// they are read.
type Connection struct {
	conn   *websocket.Conn
	send   chan *Reply
	server *Server
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newConnection(conn *websocket.Conn, s *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Reply, 64),
		server: s,
		logger: s.logger.With().Str("component", "ws").Str("remote", conn.RemoteAddr().String()).Logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := newConnection(conn, s)
	s.mu.Lock()
	s.connections[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	go c.readPump()
	go func() {
		<-c.ctx.Done()
		s.mu.Lock()
		delete(s.connections, c)
		s.mu.Unlock()
	}()
}

// Close asks the write pump to send a close frame and shut the socket. It
// returns once the socket is closed.
func (c *Connection) Close() error {
	c.cancel()
	<-c.done
	return nil
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer c.cancel()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(&Reply{Type: "error", Error: &ErrorResponse{Error: "invalid message", Code: CodeBadRequest}})
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client. It is the only writer
// and owns closing the socket.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		_ = c.conn.Close() // Ignore close errors during cleanup
		close(c.done)
	}()

	for {
		select {
		case reply := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(reply); err != nil {
				c.logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", msg.Type).Str("session_id", msg.SessionID).Msg("Received message")

	data, err := c.server.Dispatch(c.ctx, msg.Type, msg.ActionRequest)
	reply := &Reply{RequestID: msg.RequestID, Type: msg.Type}
	if err != nil {
		body := errorBody(err)
		reply.Error = &body
	} else {
		reply.Data = data
	}
	c.reply(reply)
}

// reply queues r, dropping the connection if the client is not reading.
func (c *Connection) reply(r *Reply) {
	select {
	case c.send <- r:
	case <-c.ctx.Done():
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		c.cancel()
	}
}
