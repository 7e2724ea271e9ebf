package attachment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/market-realtime/internal/domain"
	"github.com/market-realtime/internal/pkg/id"
)

// ObjectStore keeps the uploaded bytes and hands out fetchable URLs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Repo records attachment metadata.
type Repo interface {
	Put(ctx context.Context, a *domain.Attachment) error
	Get(ctx context.Context, attachmentID string) (*domain.Attachment, error)
}

type UploadInput struct {
	Reader     io.Reader
	Filename   string
	UploaderID int64
}

type Service interface {
	// Upload stores a chat attachment and returns its record, including the
	// URL to put in a message's attachment_url.
	Upload(ctx context.Context, input UploadInput) (*domain.Attachment, error)
	// Open returns the record and content of an uploaded attachment. The
	// caller closes the reader.
	Open(ctx context.Context, attachmentID string) (*domain.Attachment, io.ReadCloser, error)
}

type service struct {
	store    ObjectStore
	repo     Repo
	maxBytes int64
	now      func() time.Time
}

func NewService(store ObjectStore, repo Repo, maxBytes int64) Service {
	return &service{store: store, repo: repo, maxBytes: maxBytes, now: time.Now}
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*domain.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(input.Reader, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", domain.ErrBadRequest)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, domain.ErrBadRequest)
	}

	mt := mimetype.Detect(data)
	safeName := sanitizeFilename(input.Filename)
	ext := strings.ToLower(path.Ext(safeName))
	if ext == "" {
		ext = mt.Extension()
	}
	attachmentID := id.New()
	key := "chat/" + attachmentID + ext

	if _, err := s.store.Upload(ctx, key, bytes.NewReader(data), mt.String()); err != nil {
		return nil, err
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	a := &domain.Attachment{
		AttachmentID:     attachmentID,
		Object:           key,
		Size:             int64(len(data)),
		ContentType:      mt.String(),
		Filename:         safeName,
		Hash:             hex.EncodeToString(sum[:]),
		MessageType:      messageType(mt),
		URL:              url,
		UploadedByUserID: input.UploaderID,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) Open(ctx context.Context, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	a, err := s.repo.Get(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Download(ctx, a.Object)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

// messageType maps a detected MIME type onto the chat message kinds.
func messageType(mt *mimetype.MIME) string {
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return domain.MessageTypeImage
		case strings.HasPrefix(m.String(), "audio/"):
			return domain.MessageTypeAudio
		}
	}
	return domain.MessageTypeFile
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) so the name can be echoed back and
// used for the key extension.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." && result != ".." {
		return result
	}
	return "_"
}
