package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/market-realtime/internal/domain"
)

// AttachmentRepo keeps attachment records in memory.
type AttachmentRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.Attachment
}

func NewAttachmentRepo() *AttachmentRepo {
	return &AttachmentRepo{rows: make(map[string]domain.Attachment)}
}

func (r *AttachmentRepo) Put(_ context.Context, a *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[a.AttachmentID] = *a
	return nil
}

func (r *AttachmentRepo) Get(_ context.Context, attachmentID string) (*domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", attachmentID, domain.ErrNotFound)
	}
	return &a, nil
}

// ObjectStore keeps uploaded objects in memory and serves them under baseURL.
type ObjectStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

func NewObjectStore(baseURL string) *ObjectStore {
	return &ObjectStore{baseURL: baseURL, objects: make(map[string][]byte)}
}

func (s *ObjectStore) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return key, nil
}

func (s *ObjectStore) URL(_ context.Context, key string) (string, error) {
	return s.baseURL + "/" + key, nil
}

func (s *ObjectStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
