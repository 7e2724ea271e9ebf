package http

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/market-realtime/internal/application/attachment"
	"github.com/market-realtime/internal/application/chat"
	"github.com/market-realtime/internal/application/notification"
	"github.com/market-realtime/internal/config"
	"github.com/market-realtime/internal/domain"
	jwtinfra "github.com/market-realtime/internal/infrastructure/jwt"
	"github.com/market-realtime/internal/infrastructure/memory"
	"github.com/market-realtime/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

type testApp struct {
	t        *testing.T
	jwt      *jwtinfra.Provider
	router   http.Handler
	registry *realtime.Registry
	notifs   *memory.NotificationStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		Attachments:    config.Attachments{MaxBytes: 1 << 20},
	}
	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, nil)
	messages := memory.NewMessageStore()
	notifs := memory.NewNotificationStore()
	p := newTestJWTProvider(t)

	router := NewRouter(cfg, &Deps{
		Chat: chat.NewService(chat.ServiceDeps{
			Messages:      messages,
			Notifications: notifs,
			Dispatcher:    dispatcher,
		}),
		Notifications: notification.NewService(notifs, dispatcher, nil),
		Attachments:   attachment.NewService(memory.NewObjectStore("http://files.test"), memory.NewAttachmentRepo(), cfg.Attachments.MaxBytes),
		Registry:      registry,
		Verifier:      p,
	})
	return &testApp{t: t, jwt: p, router: router, registry: registry, notifs: notifs}
}

// do issues a request as userID with role and returns the recorder.
func (a *testApp) do(method, target string, userID int64, role string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	if userID > 0 {
		token, err := a.jwt.Sign(userID, fmt.Sprintf("user%d", userID), role)
		require.NoError(a.t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

// --- tests ---

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)
	app.registry.Register(9, stubChannel("c1"))

	rr := app.do(http.MethodGet, "/v1/health-check/ping", 0, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]interface{}](t, rr)
	assert.Equal(t, "pong", resp["message"])
	assert.Equal(t, float64(1), resp["connected_users"])

	rr = app.do(http.MethodGet, "/v1/health-check/other", 0, "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(http.MethodGet, "/v1/messages/conversations", 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMessageFlow(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodPost, "/v1/messages", 1, domain.RoleUser, map[string]interface{}{"receiver_id": 2, "content": "hello"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sent := decode[domain.Message](t, rr)
	assert.Equal(t, int64(1), sent.SenderID)

	rr = app.do(http.MethodPost, "/v1/messages", 2, domain.RoleUser, map[string]interface{}{"receiver_id": 1, "content": "hi back", "reply_to_id": sent.MessageID})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = app.do(http.MethodGet, "/v1/messages/2", 1, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	hist := decode[[]domain.Message](t, rr)
	require.Len(t, hist, 2)
	assert.Equal(t, "hello", *hist[0].Content)
	assert.Equal(t, "hi back", *hist[1].Content)

	rr = app.do(http.MethodGet, "/v1/messages/conversations", 2, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int64{1}, decode[[]int64](t, rr))

	rr = app.do(http.MethodGet, "/v1/messages", 1, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]domain.Message](t, rr)
	require.Len(t, all, 2)

	rr = app.do(http.MethodPut, "/v1/messages/read/1", 2, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "updated": float64(1)}, decode[map[string]interface{}](t, rr))

	rr = app.do(http.MethodPut, "/v1/messages/read/1", 2, domain.RoleUser, nil)
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, rr)["updated"])

	// The receiver got a "New Message" notification for each message.
	rr = app.do(http.MethodGet, "/v1/notifications", 2, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	notes := decode[[]domain.Notification](t, rr)
	require.Len(t, notes, 1)
	assert.Equal(t, "New Message", notes[0].Title)
	assert.Equal(t, "You received a message from user1", notes[0].Message)
}

func TestSendValidation(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodPost, "/v1/messages", 1, domain.RoleUser, map[string]interface{}{"content": "no receiver"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = app.do(http.MethodPost, "/v1/messages", 1, domain.RoleUser, map[string]interface{}{"receiver_id": 2})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(http.MethodPost, "/v1/messages", 1, domain.RoleUser, map[string]interface{}{"receiver_id": 2, "content": "x", "reply_to_id": 404})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(http.MethodGet, "/v1/messages/abc", 1, domain.RoleUser, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodPost, "/v1/internal/notifications", 100, domain.RoleUser, domain.NewNotification{
		UserID: 5, Title: "t", Message: "m", Type: domain.NotificationSystem,
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = app.do(http.MethodPost, "/v1/internal/notifications", 100, domain.RoleService, domain.NewNotification{
		UserID: 5, Title: "t", Message: "m", Type: domain.NotificationSystem,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	first := decode[domain.Notification](t, rr)

	rr = app.do(http.MethodPost, "/v1/internal/events/order-received", 100, domain.RoleService, map[string]interface{}{
		"vendor_user_id": 5, "order_id": 10, "store_order_id": 3, "customer_name": "Bob", "total": 12.5,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	order := decode[domain.Notification](t, rr)
	assert.Equal(t, "New Order Received", order.Title)

	rr = app.do(http.MethodGet, "/v1/notifications?limit=1", 5, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[[]domain.Notification](t, rr)
	require.Len(t, page, 1)
	assert.Equal(t, order.NotificationID, page[0].NotificationID)

	rr = app.do(http.MethodGet, "/v1/notifications?skip=x", 5, domain.RoleUser, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(http.MethodPut, fmt.Sprintf("/v1/notifications/%d/read", first.NotificationID), 6, domain.RoleUser, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = app.do(http.MethodPut, "/v1/notifications/9999/read", 5, domain.RoleUser, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(http.MethodPut, fmt.Sprintf("/v1/notifications/%d/read", first.NotificationID), 5, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[domain.Notification](t, rr).IsRead)

	rr = app.do(http.MethodPut, "/v1/notifications/read-all", 5, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]domain.Notification](t, rr)
	require.Len(t, all, 2)
	for _, n := range all {
		assert.True(t, n.IsRead)
	}
}

func TestInternalEventValidation(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(http.MethodPost, "/v1/internal/events/appointment-booked", 100, domain.RoleAdmin, map[string]interface{}{
		"vendor_user_id": 5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestUpload(t *testing.T) {
	app := newTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain text attachment"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/v1/messages/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	token, err := app.jwt.Sign(1, "alice", domain.RoleUser)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, r)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "notes.txt", resp["filename"])
	assert.Equal(t, domain.MessageTypeFile, resp["message_type"])
	assert.Regexp(t, `^http://files\.test/chat/[0-9A-Z]{26}\.txt$`, resp["url"])

	rr = app.do(http.MethodGet, "/v1/attachments/"+resp["id"], 2, domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "plain text attachment", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, `inline; filename=notes.txt`, rr.Header().Get("Content-Disposition"))

	rr = app.do(http.MethodGet, "/v1/attachments/unknown", 2, domain.RoleUser, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(http.MethodGet, "/v1/attachments/"+resp["id"], 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(http.MethodPost, "/v1/messages/upload", 1, domain.RoleUser, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type stubChannel string

func (c stubChannel) ID() string          { return string(c) }
func (c stubChannel) Send(_ []byte) error { return nil }
