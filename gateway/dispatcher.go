package gateway

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChristopherJHart/disnake/types"
)

// RuleHandler receives rule create/update/delete events
type RuleHandler func(*types.Rule)

// ExecutionHandler receives action execution events
type ExecutionHandler func(*types.ActionExecution)

// handlerEntry pairs a registered handler with its removal id
type handlerEntry struct {
	id string
	fn func(any)
}

// Dispatcher routes decoded events to registered handlers. Handlers for one
// event run in registration order on the single dispatch goroutine; a panic
// in one handler is isolated so delivery continues to the next, and a handler
// exceeding the stall grace period is logged without being abandoned.
//
// Delivery is gated on the session's intents at the dispatch point: even if
// an event for a disabled category arrives (a server bug), no handler sees it.
type Dispatcher struct {
	intents     types.Intents
	gracePeriod time.Duration
	logger      *slog.Logger
	metrics     *Metrics

	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
}

// NewDispatcher creates a dispatcher gated on the given intents
func NewDispatcher(intents types.Intents, gracePeriod time.Duration, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		intents:     intents,
		gracePeriod: gracePeriod,
		logger:      logger.With("component", "dispatcher"),
		metrics:     metrics,
		handlers:    make(map[EventType][]handlerEntry),
	}
}

// OnRuleCreate registers a handler for rule creation events.
// The returned function removes the registration.
func (d *Dispatcher) OnRuleCreate(h RuleHandler) func() {
	return d.register(EventRuleCreate, wrapRuleHandler(h))
}

// OnRuleUpdate registers a handler for rule update events
func (d *Dispatcher) OnRuleUpdate(h RuleHandler) func() {
	return d.register(EventRuleUpdate, wrapRuleHandler(h))
}

// OnRuleDelete registers a handler for rule deletion events
func (d *Dispatcher) OnRuleDelete(h RuleHandler) func() {
	return d.register(EventRuleDelete, wrapRuleHandler(h))
}

// OnActionExecution registers a handler for action execution events
func (d *Dispatcher) OnActionExecution(h ExecutionHandler) func() {
	return d.register(EventActionExecution, func(payload any) {
		if execution, ok := payload.(*types.ActionExecution); ok {
			h(execution)
		}
	})
}

func wrapRuleHandler(h RuleHandler) func(any) {
	return func(payload any) {
		if rule, ok := payload.(*types.Rule); ok {
			h(rule)
		}
	}
}

// register appends a handler in registration order and returns its remover
func (d *Dispatcher) register(t EventType, fn func(any)) func() {
	id := uuid.NewString()

	d.mu.Lock()
	d.handlers[t] = append(d.handlers[t], handlerEntry{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		entries := d.handlers[t]
		for i, entry := range entries {
			if entry.id == id {
				d.handlers[t] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// dispatch delivers one decoded event to all handlers registered for its
// type. Events for categories not enabled via intents are suppressed here
// regardless of what the server sent.
func (d *Dispatcher) dispatch(t EventType, payload any) {
	required := intentFor(t)
	if required == 0 || !d.intents.Has(required) {
		if d.metrics != nil {
			d.metrics.eventsDropped.WithLabelValues("intent_gated").Inc()
		}
		d.logger.Debug("suppressing event for disabled intent", "event", string(t))
		return
	}

	d.mu.RLock()
	entries := make([]handlerEntry, len(d.handlers[t]))
	copy(entries, d.handlers[t])
	d.mu.RUnlock()

	start := time.Now()
	for _, entry := range entries {
		d.invoke(t, entry, payload)
	}

	if d.metrics != nil {
		d.metrics.eventsDispatched.WithLabelValues(string(t)).Inc()
		d.metrics.dispatchDuration.WithLabelValues(string(t)).Observe(time.Since(start).Seconds())
	}
}

// invoke runs one handler with panic isolation and stall detection. The
// handler runs to completion before the next one starts; if it exceeds the
// grace period a warning is logged while the dispatcher keeps waiting.
func (d *Dispatcher) invoke(t EventType, entry handlerEntry, payload any) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				if d.metrics != nil {
					d.metrics.handlerPanics.Inc()
				}
				d.logger.Error("handler panicked",
					"event", string(t),
					"handler_id", entry.id,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		entry.fn(payload)
	}()

	if d.gracePeriod <= 0 {
		<-done
		return
	}

	timer := time.NewTimer(d.gracePeriod)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		if d.metrics != nil {
			d.metrics.handlerStalls.Inc()
		}
		d.logger.Warn("handler exceeded stall grace period",
			"event", string(t),
			"handler_id", entry.id,
			"grace_period", d.gracePeriod,
		)
		<-done
	}
}
