// Package realtime keeps track of live channels per user and fans events out
// to them. Delivery is best effort: nothing is queued for offline users.
package realtime

import (
	"errors"
	"sync"
)

var (
	// ErrChannelClosed is returned by Channel.Send after the channel has shut down.
	ErrChannelClosed = errors.New("channel closed")
	// ErrChannelFull is returned by Channel.Send when the outbound buffer is saturated.
	ErrChannelFull = errors.New("channel send buffer full")
)

// Channel is one live duplex connection belonging to a single user.
// Send must not block; implementations buffer and write asynchronously.
type Channel interface {
	ID() string
	Send(payload []byte) error
}

// Registry maps a user to the set of channels currently open for them.
// It is safe for concurrent use. The lock guards map operations only;
// callers receive snapshots and send outside of it.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]map[string]Channel)}
}

// Register adds ch to userID's set. Registering the same channel twice is a no-op.
func (r *Registry) Register(userID int64, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]Channel)
		r.users[userID] = set
	}
	set[ch.ID()] = ch
}

// Unregister removes ch from userID's set and drops the user entry once empty.
// Unknown users or channels are ignored.
func (r *Registry) Unregister(userID int64, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		return
	}
	delete(set, ch.ID())
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// Channels returns a snapshot of userID's channels.
func (r *Registry) Channels(userID int64) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Channel, 0, len(set))
	for _, ch := range set {
		out = append(out, ch)
	}
	return out
}

// Len returns the number of users with at least one open channel.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
