package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/market-realtime/internal/domain"
)

type NotificationStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[int64]*domain.Notification
	now  func() time.Time
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{rows: make(map[int64]*domain.Notification), now: time.Now}
}

// WithClock overrides the created_at source.
func (s *NotificationStore) WithClock(now func() time.Time) *NotificationStore {
	s.now = now
	return s
}

func (s *NotificationStore) Create(_ context.Context, n domain.NewNotification) (*domain.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	created := n.Build(s.seq, s.now())
	s.rows[created.NotificationID] = created
	out := *created
	return &out, nil
}

func (s *NotificationStore) List(_ context.Context, userID int64, offset, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	var all []domain.Notification
	for _, n := range s.rows {
		if n.UserID == userID {
			all = append(all, *n)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].NotificationID > all[j].NotificationID
	})
	if offset >= len(all) {
		return []domain.Notification{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (s *NotificationStore) Get(_ context.Context, notificationID int64) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.rows[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %d: %w", notificationID, domain.ErrNotFound)
	}
	out := *n
	return &out, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, notificationID int64) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %d: %w", notificationID, domain.ErrNotFound)
	}
	n.IsRead = true
	out := *n
	return &out, nil
}

func (s *NotificationStore) MarkAllRead(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}
