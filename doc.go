// Package disnake is a typed client for a chat platform's auto-moderation
// HTTP and gateway API.
//
// # Architecture
//
// The client coordinates two concurrent activities over one shared
// configuration and metrics registry:
//
//	┌─────────────────────────────────────┐
//	│             Client                  │  Lifecycle, registration,
//	│      (start, stop, façade)          │  façade methods
//	└─────────────────────────────────────┘
//	        ↓ owns                ↓ owns
//	┌───────────────┐     ┌───────────────┐
//	│    gateway    │     │     rest      │
//	│ session +     │     │ rule CRUD +   │
//	│ dispatcher    │     │ rate buckets  │
//	└───────────────┘     └───────────────┘
//	        ↓ decode into        ↓ decode into
//	┌─────────────────────────────────────┐
//	│         types / auditlog            │  Entity model, enums,
//	│   (rules, actions, diffs, flags)    │  flag sets, typed diffs
//	└─────────────────────────────────────┘
//
// The gateway session holds the persistent streaming connection. Its intent
// bits are fixed when the session is built and sent during the connect
// handshake, so the server only pushes subscribed event categories; the
// dispatcher additionally gates delivery on the same bits as a defense
// against misbehaving servers. Handlers run in registration order on a
// single dispatch goroutine with panic isolation and stall detection.
//
// The rest client issues request/response operations. Requests sharing a
// rate-limit bucket are serialized; distinct buckets proceed concurrently.
// Transient failures (rate limits, 5xx) retry with exponential backoff up to
// a bounded number of attempts before surfacing to the caller.
//
// # Quick Start
//
//	cfg := config.Default()
//	cfg.Token = os.Getenv("BOT_TOKEN")
//	cfg.Intents = types.IntentAutoMod
//
//	client, err := disnake.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	remove := client.OnActionExecution(func(e *types.ActionExecution) {
//	    log.Printf("rule %s fired on user %s", e.RuleID, e.UserID)
//	})
//	defer remove()
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(10 * time.Second)
//
//	rule, err := client.CreateAutoModRule(ctx, guildID, types.RuleSpec{
//	    Name:        "no spam",
//	    EventType:   types.EventMessageSend,
//	    TriggerType: types.TriggerSpam,
//	    Actions:     []types.Action{types.NewBlockMessageAction("")},
//	    Enabled:     true,
//	}, "initial setup")
//
// # Error Handling
//
// Callers see a small taxonomy: ValidationError for locally malformed specs
// (raised before any network call), DecodingError attached per field when a
// server payload cannot be converted, and the sentinel errors ErrNotFound,
// ErrForbidden, ErrRateLimited, and ErrServerError mapped 1:1 from HTTP
// status outcomes. Connection loss never reaches handlers; the session
// reconnects with backoff internally.
package disnake
