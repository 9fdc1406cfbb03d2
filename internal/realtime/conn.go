package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/parlourpunch/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn is one live client. Frames it sends are handled one at a time by
// readPump, so a client's submissions are processed in receipt order.
type Conn struct {
	id       string
	hub      *Hub
	ws       *websocket.Conn
	identity *models.Identity
	send     chan []byte

	// topics is guarded by hub.mu.
	topics map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(h *Hub, ws *websocket.Conn, identity *models.Identity) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		hub:      h,
		ws:       ws,
		identity: identity,
		send:     make(chan []byte, h.sendBuffer),
		topics:   make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// enqueue never blocks; false means the buffer is full or the connection is gone.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) sendError(message string) {
	frame, err := EncodeFrame(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	if !c.enqueue(frame) {
		c.close()
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		c.ws.Close()
		c.hub.logger.Printf("client disconnected: %s", c.id)
	})
}

func (c *Conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("read error from %s: %v", c.id, err)
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Conn) handleFrame(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError(MessageInvalidEnvelope)
		return
	}

	switch env.Event {
	case EventAttendanceUpdate:
		var submission models.PunchSubmission
		if len(env.Data) == 0 || json.Unmarshal(env.Data, &submission) != nil {
			c.sendError(MessageInvalidData)
			return
		}
		c.hub.handleSubmission(c, submission)

	case EventSubscribe, EventUnsubscribe:
		var payload SubscribePayload
		if json.Unmarshal(env.Data, &payload) != nil || payload.EmployeeID == "" {
			c.sendError(MessageInvalidEnvelope)
			return
		}
		if env.Event == EventSubscribe {
			c.hub.subscribe(c, EmployeeTopic(payload.EmployeeID))
		} else {
			c.hub.unsubscribe(c, EmployeeTopic(payload.EmployeeID))
		}

	default:
		c.sendError(MessageUnknownEvent)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
