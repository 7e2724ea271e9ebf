// Package memory holds process-local stores used by tests and by
// STORAGE_DRIVER=memory for local development. Each logical operation runs
// under the store mutex, so partial writes are never visible.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/market-realtime/internal/domain"
	"github.com/samber/lo"
)

type MessageStore struct {
	mu   sync.RWMutex
	seq  int64
	rows []domain.Message // insertion order
	byID map[int64]int
	now  func() time.Time
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byID: make(map[int64]int), now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *MessageStore) WithClock(now func() time.Time) *MessageStore {
	s.now = now
	return s
}

func (s *MessageStore) Create(_ context.Context, n domain.NewMessage) (*domain.Message, error) {
	n = n.Normalize()
	if err := n.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ReplyToID != nil {
		i, ok := s.byID[*n.ReplyToID]
		if !ok || s.rows[i].ConversationKey != domain.ConversationKey(n.SenderID, n.ReceiverID) {
			return nil, fmt.Errorf("reply_to_id %d is not a message of this conversation: %w", *n.ReplyToID, domain.ErrBadRequest)
		}
	}
	s.seq++
	m := n.Build(s.seq, s.now())
	s.byID[m.MessageID] = len(s.rows)
	s.rows = append(s.rows, *m)
	out := *m
	return &out, nil
}

func (s *MessageStore) History(_ context.Context, userA, userB int64) ([]domain.Message, error) {
	key := domain.ConversationKey(userA, userB)

	s.mu.RLock()
	out := lo.Filter(s.rows, func(m domain.Message, _ int) bool { return m.ConversationKey == key })
	s.mu.RUnlock()

	sortAscending(out)
	return out, nil
}

func (s *MessageStore) Conversations(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	peers := make([]int64, 0)
	for _, m := range s.rows {
		if m.SenderID == userID || m.ReceiverID == userID {
			peers = append(peers, m.Counterpart(userID))
		}
	}
	s.mu.RUnlock()

	peers = lo.Uniq(peers)
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers, nil
}

func (s *MessageStore) ListForUser(_ context.Context, userID int64) ([]domain.Message, error) {
	s.mu.RLock()
	out := lo.Filter(s.rows, func(m domain.Message, _ int) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	})
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].MessageID > out[j].MessageID
	})
	return out, nil
}

func (s *MessageStore) MarkRead(_ context.Context, senderID, readerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range s.rows {
		m := &s.rows[i]
		if m.SenderID == senderID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func sortAscending(ms []domain.Message) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].Timestamp.Equal(ms[j].Timestamp) {
			return ms[i].Timestamp.Before(ms[j].Timestamp)
		}
		return ms[i].MessageID < ms[j].MessageID
	})
}
