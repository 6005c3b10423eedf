package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherJHart/disnake/config"
	"github.com/ChristopherJHart/disnake/metric"
	"github.com/ChristopherJHart/disnake/pkg/retry"
	"github.com/ChristopherJHart/disnake/types"
)

var testUpgrader = websocket.Upgrader{}

func testSessionConfig(serverURL string) config.Config {
	cfg := config.Default()
	cfg.Token = "test-token"
	cfg.GatewayURL = "ws" + strings.TrimPrefix(serverURL, "http")
	cfg.Intents = types.IntentAutoMod
	cfg.EventQueueSize = 16
	return cfg
}

// completeHandshake performs the server side of the handshake and returns the
// identify payload the client sent
func completeHandshake(conn *websocket.Conn) (identifyData, error) {
	var id identifyData
	if err := conn.WriteJSON(envelope{Op: opHello}); err != nil {
		return id, err
	}

	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		return id, err
	}
	if err := json.Unmarshal(env.Data, &id); err != nil {
		return id, err
	}

	return id, conn.WriteJSON(envelope{Op: opDispatch, Type: eventReady})
}

func TestSession_HandshakeAndDispatch(t *testing.T) {
	identified := make(chan identifyData, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, err := completeHandshake(conn)
		if err != nil {
			return
		}
		identified <- id

		_ = conn.WriteJSON(envelope{
			Op:   opDispatch,
			Type: EventRuleCreate,
			Data: json.RawMessage(`{"id": "5", "guild_id": "1", "name": "fresh rule"}`),
		})

		// Hold the connection open until the client closes it
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	session := NewSession(testSessionConfig(srv.URL), discardLogger(), nil)

	received := make(chan *types.Rule, 1)
	session.Dispatcher().OnRuleCreate(func(rule *types.Rule) { received <- rule })

	require.NoError(t, session.Start(context.Background()))
	defer func() { _ = session.Stop(2 * time.Second) }()

	// Identify carries the configured token and intent bits
	select {
	case id := <-identified:
		assert.Equal(t, "test-token", id.Token)
		assert.Equal(t, types.IntentAutoMod, id.Intents)
	case <-time.After(2 * time.Second):
		t.Fatal("client never identified")
	}

	select {
	case rule := <-received:
		assert.Equal(t, types.Snowflake(5), rule.ID)
		assert.Equal(t, "fresh rule", rule.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the handler")
	}

	// First delivered event moves the session into the dispatching state
	assert.Eventually(t, func() bool {
		return session.State() == StateDispatching
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_ReconnectResendsSameIntents(t *testing.T) {
	identifies := make(chan identifyData, 2)

	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, err := completeHandshake(conn)
		if err != nil {
			return
		}
		identifies <- id

		if connections.Add(1) == 1 {
			// Drop the first connection right after the handshake to force
			// a reconnect
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	session := NewSession(testSessionConfig(srv.URL), discardLogger(), nil)
	require.NoError(t, session.Start(context.Background()))
	defer func() { _ = session.Stop(2 * time.Second) }()

	var first, second identifyData
	select {
	case first = <-identifies:
	case <-time.After(2 * time.Second):
		t.Fatal("client never identified")
	}
	select {
	case second = <-identifies:
	case <-time.After(5 * time.Second):
		t.Fatal("client never reconnected")
	}

	assert.Equal(t, first.Intents, second.Intents)
	assert.Equal(t, types.IntentAutoMod, second.Intents)

	assert.Eventually(t, func() bool {
		return session.State() == StateSubscribed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_StartTwiceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := completeHandshake(conn); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	session := NewSession(testSessionConfig(srv.URL), discardLogger(), nil)
	require.NoError(t, session.Start(context.Background()))
	defer func() { _ = session.Stop(2 * time.Second) }()

	assert.Error(t, session.Start(context.Background()))
}

func TestSession_StopIsIdempotent(t *testing.T) {
	session := NewSession(testSessionConfig("http://127.0.0.1:0"), discardLogger(), nil)

	// Stopping a never-started session is a no-op
	assert.NoError(t, session.Stop(time.Second))
}

func TestSession_OutlivesExhaustedConnectBudget(t *testing.T) {
	// A sustained outage must not kill the session: when one connect budget
	// runs out, the failure is logged and a fresh budget starts after a pause
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // every dial now fails

	session := NewSession(testSessionConfig(srv.URL), discardLogger(), metric.NewRegistry())
	session.connectRetry = retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
	session.reconnectPause = 5 * time.Millisecond

	require.NoError(t, session.Start(context.Background()))
	defer func() { _ = session.Stop(2 * time.Second) }()

	// Two increments mean two whole budgets were exhausted and the loop is
	// still alive
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(session.metrics.reconnects) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	state := session.State()
	assert.Contains(t, []State{StateConnecting, StateDisconnected}, state)
	assert.NoError(t, session.Stop(2*time.Second))
}

func TestSession_FatalHandshakeStopsRedialing(t *testing.T) {
	// A server answering with the wrong opcode is a protocol violation;
	// redialing it within the same budget cannot help
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		attempts.Add(1)
		_ = conn.WriteJSON(envelope{Op: 99})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	session := NewSession(testSessionConfig(srv.URL), discardLogger(), nil)
	session.connectRetry = retry.Config{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
	// Long pause keeps the test inside a single budget
	session.reconnectPause = time.Minute

	require.NoError(t, session.Start(context.Background()))
	defer func() { _ = session.Stop(2 * time.Second) }()

	require.Eventually(t, func() bool {
		return attempts.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// With the budget's backoff delays long gone, further attempts would
	// have landed by now if the failure were treated as retryable
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSession_EnqueueDropsOldest(t *testing.T) {
	// When the queue overflows, the oldest event is evicted so the newest
	// is never lost
	cfg := testSessionConfig("http://127.0.0.1:0")
	cfg.EventQueueSize = 2
	session := NewSession(cfg, discardLogger(), nil)

	for i := 1; i <= 3; i++ {
		session.enqueue(queuedEvent{t: EventRuleCreate, payload: &types.Rule{ID: types.Snowflake(i)}})
	}

	first := (<-session.queue).payload.(*types.Rule)
	second := (<-session.queue).payload.(*types.Rule)
	assert.Equal(t, types.Snowflake(2), first.ID)
	assert.Equal(t, types.Snowflake(3), second.ID)
}
