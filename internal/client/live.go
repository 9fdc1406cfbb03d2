package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/realtime"
)

var ErrNotConnected = errors.New("live channel not connected")

const (
	liveWriteWait    = 10 * time.Second
	maxReconnectWait = 30 * time.Second
)

type LiveOptions struct {
	Logger   *log.Logger
	Notifier Notifier
	Dialer   *websocket.Dialer
}

// LiveConn is the client end of the live channel. It keeps one connection
// open, reconnecting with backoff, and feeds inbound frames to the cache.
type LiveConn struct {
	url      string
	header   http.Header
	dialer   *websocket.Dialer
	cache    *Cache
	notifier Notifier
	logger   *log.Logger

	// writeMu guards conn and serialises writes on it.
	writeMu   sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewLiveConn(baseURL, token string, cache *Cache, opts LiveOptions) *LiveConn {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	return &LiveConn{
		url:      LiveURL(baseURL),
		header:   header,
		dialer:   opts.Dialer,
		cache:    cache,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// LiveURL maps the REST base URL to the WebSocket endpoint.
func LiveURL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (l *LiveConn) Connected() bool {
	return l.connected.Load()
}

// Start connects in the background and keeps reconnecting until Stop is
// called or ctx ends.
func (l *LiveConn) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx)
}

func (l *LiveConn) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()

	l.writeMu.Lock()
	if l.conn != nil {
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(liveWriteWait))
		_ = l.conn.Close()
	}
	l.writeMu.Unlock()

	<-l.done
}

// SendPunch writes an attendance_update frame. It fails fast when there is
// no open connection.
func (l *LiveConn) SendPunch(_ context.Context, submission models.PunchSubmission) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	frame, err := realtime.EncodeFrame(realtime.EventAttendanceUpdate, submission)
	if err != nil {
		return err
	}
	return l.write(frame)
}

func (l *LiveConn) write(frame []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.conn == nil {
		return ErrNotConnected
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := l.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (l *LiveConn) run(ctx context.Context) {
	defer close(l.done)

	first := true
	for {
		conn, err := l.dial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Printf("live channel gave up: %v", err)
			}
			return
		}

		l.attach(conn)

		// Subscriptions go out before any punch so the server handles them first.
		if err := l.subscribeAll(); err != nil {
			l.logger.Printf("failed to subscribe: %v", err)
		}
		if !first {
			if err := l.cache.Reconcile(ctx); err != nil && ctx.Err() == nil {
				l.logger.Printf("reconcile after reconnect failed: %v", err)
			}
		}
		first = false

		l.connected.Store(true)
		l.logger.Printf("live channel connected to %s", l.url)

		stopWatch := context.AfterFunc(ctx, func() { _ = conn.Close() })
		l.readLoop(ctx, conn)
		stopWatch()
		l.detach(conn)

		if ctx.Err() != nil {
			return
		}
		l.logger.Println("live channel disconnected, reconnecting")
	}
}

func (l *LiveConn) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn

	operation := func() error {
		c, resp, err := l.dialer.DialContext(ctx, l.url, l.header)
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return backoff.Permanent(fmt.Errorf("live channel rejected credentials: %s", resp.Status))
			}
			l.logger.Printf("live channel dial failed: %v", err)
			return err
		}
		conn = c
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = maxReconnectWait
	policy.MaxElapsedTime = 0

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

func (l *LiveConn) attach(conn *websocket.Conn) {
	l.writeMu.Lock()
	l.conn = conn
	l.writeMu.Unlock()
}

func (l *LiveConn) detach(conn *websocket.Conn) {
	l.connected.Store(false)
	l.writeMu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.writeMu.Unlock()
	_ = conn.Close()
}

func (l *LiveConn) subscribeAll() error {
	for _, emp := range l.cache.Employees() {
		frame, err := realtime.EncodeFrame(realtime.EventSubscribe, realtime.SubscribePayload{EmployeeID: emp.ID})
		if err != nil {
			return err
		}
		if err := l.write(frame); err != nil {
			return err
		}
	}
	return nil
}

func (l *LiveConn) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				l.logger.Printf("live channel read error: %v", err)
			}
			return
		}
		l.dispatch(ctx, raw)
	}
}

func (l *LiveConn) dispatch(ctx context.Context, raw []byte) {
	var env realtime.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		l.logger.Printf("dropping malformed frame: %v", err)
		return
	}

	switch env.Event {
	case realtime.EventStatusUpdate:
		var update models.StatusUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil || update.EmployeeID == "" {
			l.logger.Printf("dropping malformed status_update: %s", env.Data)
			return
		}
		if err := l.cache.ApplyStatusUpdate(ctx, update); err != nil {
			l.logger.Printf("failed to persist status for %s: %v", update.EmployeeID, err)
		}

	case realtime.EventAttendanceUpdate:
		var event models.AttendanceEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			l.logger.Printf("dropping malformed attendance_update: %v", err)
			return
		}
		l.cache.ApplyAttendanceEvent(&event)

	case realtime.EventError:
		var payload realtime.ErrorPayload
		_ = json.Unmarshal(env.Data, &payload)
		l.notifier.Notify(Notice{Kind: NoticeFailure, Title: "Error", Description: payload.Message})
	}
}
