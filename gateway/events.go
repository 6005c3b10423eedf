// Package gateway maintains the persistent streaming connection: the
// websocket session and its handshake, the reconnect loop, and the event
// dispatcher that routes decoded payloads to registered handlers. Event
// categories not enabled via intents are never requested from the remote
// service, and the dispatcher additionally gates delivery so a misbehaving
// server cannot reach handlers for disabled categories.
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/types"
)

// EventType discriminates incoming event envelopes
type EventType string

// Event types delivered over the streaming connection
const (
	EventRuleCreate      EventType = "AUTO_MODERATION_RULE_CREATE"
	EventRuleUpdate      EventType = "AUTO_MODERATION_RULE_UPDATE"
	EventRuleDelete      EventType = "AUTO_MODERATION_RULE_DELETE"
	EventActionExecution EventType = "AUTO_MODERATION_ACTION_EXECUTION"

	// eventReady confirms the handshake; it is not dispatched to handlers
	eventReady EventType = "READY"
)

// intentFor maps an event type to the intent bit that subscribes to it
func intentFor(t EventType) types.Intents {
	switch t {
	case EventRuleCreate, EventRuleUpdate, EventRuleDelete:
		return types.IntentAutoModConfiguration
	case EventActionExecution:
		return types.IntentAutoModExecution
	default:
		return 0
	}
}

// Gateway opcodes
const (
	opDispatch = 0
	opIdentify = 2
	opHello    = 10
)

// envelope is the wire frame for every gateway message
type envelope struct {
	Op       int             `json:"op"`
	Type     EventType       `json:"t,omitempty"`
	Sequence int64           `json:"s,omitempty"`
	Data     json.RawMessage `json:"d,omitempty"`
}

// identifyData is the payload of the identify frame. The intent bits sent
// here are the only subscription the server honors for this connection.
type identifyData struct {
	Token   string        `json:"token"`
	Intents types.Intents `json:"intents"`
}

// decodeEvent converts a dispatch payload into its entity model instance.
// Unknown event types return (nil, nil): a forward-compatible no-op.
func decodeEvent(t EventType, data json.RawMessage) (any, error) {
	switch t {
	case EventRuleCreate, EventRuleUpdate, EventRuleDelete:
		var rule types.Rule
		if err := json.Unmarshal(data, &rule); err != nil {
			return nil, errors.NewDecoding(string(t), string(data), err)
		}
		return &rule, nil
	case EventActionExecution:
		var execution types.ActionExecution
		if err := json.Unmarshal(data, &execution); err != nil {
			return nil, errors.NewDecoding(string(t), string(data), err)
		}
		return &execution, nil
	default:
		return nil, nil
	}
}

// State is the connection state of the session
type State int32

// Session states
const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateDispatching
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateDispatching:
		return "dispatching"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}
