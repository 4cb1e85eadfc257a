package game

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"example.com/stuckem/internal/httpapi"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ClientConn is one attached render surface.
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
}

// Send queues msg without blocking. It reports false when the connection
// is closed or its buffer is full.
func (c *ClientConn) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *ClientConn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

// handleWS attaches a websocket to the table named in the path.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	t, err := s.table(ps)
	if err != nil {
		httpapi.WriteErr(w, err)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "table", t.ID(), "err", err)
		return
	}

	cc := NewClientConn(ws)
	if err := t.Attach(cc); err != nil {
		cc.Close()
		return
	}

	go cc.writeLoop()
	cc.readLoop(r.Context(), t)

	t.Detach(cc)
	cc.Close()
}

func (c *ClientConn) readLoop(ctx context.Context, t *Table) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.Send(envelope(msgError, ErrorPayload{Code: codeBadJSON, Message: "invalid json"}))
			continue
		}

		if env.Type == msgConfirmReply {
			var p ConfirmReplyPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				c.Send(envelope(msgError, ErrorPayload{Code: codeBadInput, Message: "invalid payload"}))
				continue
			}
			t.Reply(p)
			continue
		}

		if err := t.Dispatch(ctx, c, env); err != nil {
			return
		}
	}
}

func (c *ClientConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
