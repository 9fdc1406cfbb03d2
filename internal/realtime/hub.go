package realtime

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/parlourpunch/internal/middleware"
	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/observability"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
)

// Recorder persists a submission and publishes it on success.
type Recorder interface {
	Record(ctx context.Context, source string, actor *models.Identity, submission models.PunchSubmission) (*models.AttendanceEvent, error)
}

// Authorizer checks that a token belongs to an admin or super admin.
type Authorizer interface {
	Authorize(token string) (*models.Identity, error)
}

type HubOptions struct {
	Logger         *log.Logger
	AllowedOrigins []string
	// SendBuffer is the number of frames queued per connection before it is
	// treated as a slow consumer and dropped.
	SendBuffer int
	// RecordTimeout bounds one persistence call. It is not tied to the
	// connection, so a disconnect does not cancel an accepted write.
	RecordTimeout time.Duration
}

type Hub struct {
	broker   Broker
	recorder Recorder
	auth     Authorizer
	logger   *log.Logger
	upgrader websocket.Upgrader

	sendBuffer    int
	recordTimeout time.Duration

	mu     sync.RWMutex
	conns  map[*Conn]struct{}
	topics map[string]map[*Conn]struct{}
}

func NewHub(broker Broker, recorder Recorder, auth Authorizer, opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 10 * time.Second
	}

	h := &Hub{
		broker:        broker,
		recorder:      recorder,
		auth:          auth,
		logger:        opts.Logger,
		sendBuffer:    opts.SendBuffer,
		recordTimeout: opts.RecordTimeout,
		conns:         make(map[*Conn]struct{}),
		topics:        make(map[string]map[*Conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return h
}

// Start wires the hub to its broker. Frames published before Start are lost.
func (h *Hub) Start(ctx context.Context) error {
	return h.broker.Start(ctx, h.deliver)
}

// PublishAttendance broadcasts the confirmed event to every connection and a
// compact status to the employee's own topic.
func (h *Hub) PublishAttendance(ctx context.Context, event *models.AttendanceEvent) error {
	full, err := EncodeFrame(EventAttendanceUpdate, event)
	if err != nil {
		return err
	}
	status, err := EncodeFrame(EventStatusUpdate, models.StatusUpdateFor(event))
	if err != nil {
		return err
	}

	return errors.Join(
		h.broker.Publish(ctx, TopicAttendance, full),
		h.broker.Publish(ctx, EmployeeTopic(event.EmployeeID), status),
	)
}

// ServeHTTP authenticates the upgrade request and then runs the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Authorize(middleware.TokenFromRequest(r))
	if err != nil {
		status, message := middleware.AuthStatus(err)
		middleware.WriteError(w, status, message)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := newConn(h, ws, identity)
	h.register(c)
	h.logger.Printf("client connected: %s (%s)", c.id, identity.Email)

	go c.writePump()
	c.readPump()
}

// ConnectionCount reports the number of live connections on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client. It does not close the broker.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.subscribe(c, TopicAttendance)
	observability.ConnectionOpened()
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	for topic := range c.topics {
		h.removeFromTopic(c, topic)
	}
	observability.ConnectionClosed()
}

func (h *Hub) subscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Conn]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
	c.topics[topic] = struct{}{}
}

func (h *Hub) unsubscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopic(c, topic)
}

// removeFromTopic requires h.mu held for writing.
func (h *Hub) removeFromTopic(c *Conn, topic string) {
	delete(c.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// deliver queues frame on every local subscriber of topic. Connections whose
// buffer is full are dropped after the fan-out.
func (h *Hub) deliver(topic string, frame []byte) {
	event := EventAttendanceUpdate
	if isEmployeeTopic(topic) {
		event = EventStatusUpdate
	}

	var slow []*Conn
	h.mu.RLock()
	for c := range h.topics[topic] {
		if c.enqueue(frame) {
			observability.RecordFrameDelivered(event)
		} else {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Printf("dropping slow client %s", c.id)
		observability.RecordSlowConsumerDropped()
		c.close()
	}
}

func (h *Hub) handleSubmission(c *Conn, submission models.PunchSubmission) {
	ctx, cancel := context.WithTimeout(context.Background(), h.recordTimeout)
	defer cancel()

	_, err := h.recorder.Record(ctx, observability.SourceLive, c.identity, submission)
	if err == nil {
		return
	}

	message := MessageProcessFailed
	if repositories.IsValidationError(err) {
		message = MessageInvalidData
		h.logger.Printf("invalid attendance data from %s: %v", c.id, err)
	}
	c.sendError(message)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
