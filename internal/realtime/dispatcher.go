package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Dispatcher pushes payloads to every channel a user has open.
type Dispatcher struct {
	registry *Registry
	log      *slog.Logger
}

func NewDispatcher(registry *Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{registry: registry, log: log}
}

// Fanout encodes payload once and hands it to each of userID's channels.
// Failed channels are skipped. It returns how many channels accepted the
// payload; a user with no channels yields 0 and nothing is retained.
func (d *Dispatcher) Fanout(ctx context.Context, userID int64, payload any) int {
	channels := d.registry.Channels(userID)
	if len(channels) == 0 {
		return 0
	}
	b, err := encode(payload)
	if err != nil {
		d.log.ErrorContext(ctx, "fanout: encode payload", "user_id", userID, "err", err)
		return 0
	}
	delivered := 0
	for _, ch := range channels {
		if err := ch.Send(b); err != nil {
			d.log.DebugContext(ctx, "fanout: channel skipped", "user_id", userID, "channel", ch.ID(), "err", err)
			continue
		}
		delivered++
	}
	return delivered
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
