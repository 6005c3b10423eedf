package types

// Intents selects which categories of gateway events the client requests
// from the remote service during the connect handshake. Intents are fixed
// once the streaming connection is established; the session resends the same
// bits on every reconnect, so changing them afterwards has no effect.
type Intents uint64

const (
	// IntentAutoModConfiguration subscribes to rule create/update/delete events
	IntentAutoModConfiguration Intents = 1 << 20
	// IntentAutoModExecution subscribes to action execution events
	IntentAutoModExecution Intents = 1 << 21

	// IntentAutoMod is a shortcut enabling both auto-moderation categories
	IntentAutoMod = IntentAutoModConfiguration | IntentAutoModExecution
)

// Has reports whether every bit in other is enabled
func (i Intents) Has(other Intents) bool {
	return i&other == other
}

// Add returns a new set with the given bits enabled
func (i Intents) Add(other Intents) Intents {
	return i | other
}

// Remove returns a new set with the given bits disabled
func (i Intents) Remove(other Intents) Intents {
	return i &^ other
}
