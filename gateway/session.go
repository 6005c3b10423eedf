package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ChristopherJHart/disnake/config"
	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/metric"
	"github.com/ChristopherJHart/disnake/pkg/retry"
)

// queuedEvent is one decoded event awaiting dispatch
type queuedEvent struct {
	t       EventType
	payload any
}

// Session owns the streaming connection. It moves through the states
// disconnected, connecting, subscribed (handshake confirmed the requested
// intents), and dispatching (first event delivered); connection loss from any
// state returns it to disconnected and triggers reconnection with backoff.
// The intents sent in the handshake are captured at construction and resent
// unchanged on every reconnect.
type Session struct {
	cfg        config.Config
	dialer     *websocket.Dialer
	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *Metrics

	conn   *websocket.Conn
	connMu sync.Mutex

	state atomic.Int32
	queue chan queuedEvent

	// Reconnect tuning, fixed at construction
	connectRetry   retry.Config
	reconnectPause time.Duration

	// Lifecycle management
	shutdown     chan struct{}
	shutdownOnce sync.Once
	started      atomic.Bool
	cancel       context.CancelFunc
	group        *errgroup.Group
	lifecycleMu  sync.Mutex
}

// NewSession creates a session for the given configuration. The configured
// intents are fixed for the session's lifetime.
func NewSession(cfg config.Config, logger *slog.Logger, registry metric.Registrar) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	metrics := newMetrics(registry)
	return &Session{
		cfg:            cfg,
		dialer:         &websocket.Dialer{HandshakeTimeout: 45 * time.Second},
		dispatcher:     NewDispatcher(cfg.Intents, cfg.StallGracePeriod, logger, metrics),
		logger:         logger,
		metrics:        metrics,
		queue:          make(chan queuedEvent, cfg.EventQueueSize),
		shutdown:       make(chan struct{}),
		connectRetry:   retry.Persistent(),
		reconnectPause: 5 * time.Second,
	}
}

// Dispatcher returns the session's event dispatcher for handler registration
func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// State returns the current connection state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
	if s.metrics != nil {
		s.metrics.connectionState.Set(float64(state))
	}
}

// Start establishes the streaming connection and begins dispatching events.
// It returns once the connect and dispatch loops are running; connection
// establishment and recovery happen in the background.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyConnected, "gateway", "Start", "check started state")
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	group, groupCtx := errgroup.WithContext(sessionCtx)
	s.group = group
	group.Go(func() error { return s.connectLoop(groupCtx) })
	group.Go(func() error { return s.dispatchLoop(groupCtx) })

	s.started.Store(true)
	return nil
}

// Stop tears the session down: it closes the connection, stops the loops,
// and waits up to timeout for them to finish
func (s *Session) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started.Load() {
		return nil
	}

	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
	s.cancel()
	s.closeConn()

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"gateway", "Stop", "wait for loops")
	}

	s.setState(StateDisconnected)
	s.started.Store(false)
	return nil
}

func (s *Session) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *Session) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// connectLoop maintains the connection for the session's lifetime: connect
// with backoff, read until the connection drops, reconnect. It never gives
// up on its own; only Stop or context cancellation ends it. When a whole
// connect budget is exhausted, the failure is logged at error level and a
// fresh budget starts after a pause.
func (s *Session) connectLoop(ctx context.Context) error {
	for {
		select {
		case <-s.shutdown:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		s.setState(StateConnecting)
		conn, err := s.connect(ctx)
		if err != nil {
			s.setState(StateDisconnected)
			if s.isShuttingDown(ctx) {
				return nil
			}

			if s.metrics != nil {
				s.metrics.reconnects.Inc()
			}
			s.logger.Error("gateway connect failed, retrying after pause",
				"error", err,
				"pause", s.reconnectPause,
			)

			timer := time.NewTimer(s.reconnectPause)
			select {
			case <-s.shutdown:
				timer.Stop()
				return nil
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}

		s.setConn(conn)
		s.setState(StateSubscribed)
		s.logger.Info("gateway connected", "intents", uint64(s.cfg.Intents))

		err = s.readLoop(ctx, conn)
		s.closeConn()
		s.setState(StateDisconnected)

		if s.isShuttingDown(ctx) {
			return nil
		}

		if s.metrics != nil {
			s.metrics.reconnects.Inc()
		}
		s.logger.Warn("gateway connection lost, reconnecting", "error", err)
	}
}

func (s *Session) isShuttingDown(ctx context.Context) bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return ctx.Err() != nil
	}
}

// connect dials the gateway and completes the handshake, retrying with
// exponential backoff and jitter until it succeeds or the retry budget is
// exhausted. Fatal-class handshake failures (protocol violations) stop the
// budget early instead of redialing a server that answers wrong.
func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	return retry.DoWithResult(ctx, s.connectRetry, func() (*websocket.Conn, error) {
		conn, _, err := s.dialer.DialContext(ctx, s.cfg.GatewayURL, nil)
		if err != nil {
			return nil, errors.WrapTransient(err, "gateway", "connect", "dial")
		}

		if err := s.handshake(conn); err != nil {
			_ = conn.Close()
			if errors.IsFatal(err) {
				return nil, retry.NonRetryable(err)
			}
			return nil, err
		}
		return conn, nil
	})
}

// handshake waits for the server hello, identifies with the session's token
// and intent bits, and waits for the server to confirm the subscription
func (s *Session) handshake(conn *websocket.Conn) error {
	deadline := time.Now().Add(30 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	hello, err := readEnvelope(conn)
	if err != nil {
		return errors.WrapTransient(err, "gateway", "handshake", "read hello")
	}
	if hello.Op != opHello {
		return errors.WrapFatal(
			fmt.Errorf("%w: expected hello, got op %d", errors.ErrHandshakeFailed, hello.Op),
			"gateway", "handshake", "validate hello")
	}

	identify := envelope{Op: opIdentify}
	identify.Data, err = json.Marshal(identifyData{
		Token:   s.cfg.Token,
		Intents: s.cfg.Intents,
	})
	if err != nil {
		return errors.WrapFatal(err, "gateway", "handshake", "marshal identify")
	}
	if err := conn.WriteJSON(identify); err != nil {
		return errors.WrapTransient(err, "gateway", "handshake", "send identify")
	}

	ready, err := readEnvelope(conn)
	if err != nil {
		return errors.WrapTransient(err, "gateway", "handshake", "read ready")
	}
	if ready.Op != opDispatch || ready.Type != eventReady {
		return errors.WrapFatal(
			fmt.Errorf("%w: expected ready, got op %d type %q", errors.ErrHandshakeFailed, ready.Op, ready.Type),
			"gateway", "handshake", "validate ready")
	}

	return nil
}

func readEnvelope(conn *websocket.Conn) (*envelope, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// readLoop receives frames until the connection drops or shutdown begins.
// Stop unblocks the pending read by closing the connection.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-s.shutdown:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.isShuttingDown(ctx) {
				return nil
			}
			return errors.WrapTransient(
				fmt.Errorf("%w: %v", errors.ErrConnectionLost, err),
				"gateway", "readLoop", "read frame")
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.dropEvent("malformed_frame")
			s.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		if env.Op != opDispatch {
			continue
		}

		if s.metrics != nil {
			s.metrics.eventsReceived.WithLabelValues(string(env.Type)).Inc()
		}
		if env.Type == eventReady {
			continue
		}

		payload, err := decodeEvent(env.Type, env.Data)
		if err != nil {
			s.dropEvent("decode_error")
			s.logger.Warn("discarding undecodable event", "event", string(env.Type), "error", err)
			continue
		}
		if payload == nil {
			// Unknown future event type: forward-compatible no-op
			s.dropEvent("unknown_type")
			s.logger.Debug("ignoring unknown event type", "event", string(env.Type))
			continue
		}

		s.enqueue(queuedEvent{t: env.Type, payload: payload})
	}
}

// enqueue adds an event to the dispatch queue, dropping the oldest queued
// event on overflow so a stalled consumer cannot block the read loop
func (s *Session) enqueue(evt queuedEvent) {
	select {
	case s.queue <- evt:
		return
	default:
	}

	// Queue full: evict the oldest, then try once more. The read loop is the
	// only producer, so at most one eviction is needed.
	select {
	case <-s.queue:
		s.dropEvent("queue_overflow")
	default:
	}
	select {
	case s.queue <- evt:
	default:
		s.dropEvent("queue_overflow")
	}
}

func (s *Session) dropEvent(reason string) {
	if s.metrics != nil {
		s.metrics.eventsDropped.WithLabelValues(reason).Inc()
	}
}

// dispatchLoop processes queued events in arrival order on a single
// goroutine. The first delivered event moves the session to the dispatching
// state.
func (s *Session) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case <-s.shutdown:
			return nil
		case <-ctx.Done():
			return nil
		case evt := <-s.queue:
			if s.State() == StateSubscribed {
				s.setState(StateDispatching)
			}
			s.dispatcher.dispatch(evt.t, evt.payload)
		}
	}
}
