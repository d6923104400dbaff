package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/chat"
	"github.com/Nishan666/roomchat/internal/config"
	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/session"
	"github.com/Nishan666/roomchat/internal/settings"
	"github.com/Nishan666/roomchat/internal/ws"
)

const testSecret = "test-secret"

type fakeStore struct {
	mu       sync.Mutex
	inserted []*models.Message
}

func (f *fakeStore) Insert(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, m)
	return nil
}

func (f *fakeStore) Listen(context.Context, string, func([]models.Message), func(error)) (func(), error) {
	return func() {}, nil
}

type memorySessions struct {
	mu     sync.Mutex
	kvs    map[string]*session.MemoryKV
	stores map[string]*session.Store
}

func (m *memorySessions) KVForUser(userID string) session.KV {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kvLocked(userID)
}

func (m *memorySessions) kvLocked(userID string) *session.MemoryKV {
	if m.kvs == nil {
		m.kvs = make(map[string]*session.MemoryKV)
	}
	if kv, ok := m.kvs[userID]; ok {
		return kv
	}
	kv := session.NewMemoryKV()
	m.kvs[userID] = kv
	return kv
}

func (m *memorySessions) ForUser(userID string) *session.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stores == nil {
		m.stores = make(map[string]*session.Store)
	}
	if s, ok := m.stores[userID]; ok {
		return s
	}
	s := session.NewStore(m.kvLocked(userID), zap.NewNop())
	m.stores[userID] = s
	return s
}

func signToken(t *testing.T, email, nickname string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"email":    email,
		"nickname": nickname,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestApp(t *testing.T, st *fakeStore) (*memorySessions, func(method, path, body, token string) int) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.JWTSecret = testSecret
	cfg.RateLimit.PerMinute = 6000

	log := zap.NewNop()
	sender := chat.NewSender(st, nil, nil, log)
	sessions := &memorySessions{}
	app := NewServer(cfg, log, nil, st, sender, nil, nil, ws.NewHub(), sessions)

	do := func(method, path, body, token string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	return sessions, do
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	_, do := newTestApp(t, &fakeStore{})
	assert.Equal(t, 200, do("GET", "/healthz", "", ""))
}

func TestAPIRejectsMissingToken(t *testing.T) {
	_, do := newTestApp(t, &fakeStore{})
	assert.Equal(t, 401, do("POST", "/v1/messages", `{"room_id":"r1","text":"hi"}`, ""))
}

func TestSendMessageValidation(t *testing.T) {
	st := &fakeStore{}
	_, do := newTestApp(t, st)
	token := signToken(t, "alice@example.com", "Alice")

	assert.Equal(t, 400, do("POST", "/v1/messages", `{"room_id":"r1","text":"   "}`, token))
	assert.Empty(t, st.inserted)

	assert.Equal(t, 200, do("POST", "/v1/messages", `{"room_id":"r1","text":"hello"}`, token))
	require.Len(t, st.inserted, 1)
	assert.Equal(t, "alice@example.com", st.inserted[0].UserID)
	assert.Equal(t, "Alice", st.inserted[0].UserName)
}

func TestSaveProfilePersistsToSession(t *testing.T) {
	sessions, do := newTestApp(t, &fakeStore{})
	token := signToken(t, "alice@example.com", "Alice")

	require.Equal(t, 200, do("POST", "/v1/profile", `{"nickname":"Alice"}`, token))

	sess := sessions.ForUser("alice@example.com")
	require.NotNil(t, sess.Profile())
	assert.Equal(t, "Alice", sess.Profile().Nickname)
	assert.Equal(t, "alice@example.com", sess.Profile().Email)
}

func TestSettingsStickPerUser(t *testing.T) {
	sessions, do := newTestApp(t, &fakeStore{})
	alice := signToken(t, "alice@example.com", "Alice")

	assert.Equal(t, 200, do("PUT", "/v1/settings", `{"dark_mode":true,"language":"fr"}`, alice))

	ctx := context.Background()
	theme, err := sessions.KVForUser("alice@example.com").Get(ctx, settings.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "true", theme)

	lang, err := sessions.KVForUser("alice@example.com").Get(ctx, settings.KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)

	_, err = sessions.KVForUser("bob@example.com").Get(ctx, settings.KeyTheme)
	assert.ErrorIs(t, err, session.ErrKeyNotFound)
}

func TestPermissionDeniedAsksForSystemSettings(t *testing.T) {
	_, do := newTestApp(t, &fakeStore{})
	token := signToken(t, "alice@example.com", "Alice")

	// enabling with the device reporting a refused dialog
	assert.Equal(t, 409, do("PUT", "/v1/settings/permissions",
		`{"permission":"notifications","enabled":true,"granted":false}`, token))

	// disabling always needs system settings to revoke the grant
	assert.Equal(t, 409, do("PUT", "/v1/settings/permissions",
		`{"permission":"location","enabled":false}`, token))

	assert.Equal(t, 200, do("PUT", "/v1/settings/permissions",
		`{"permission":"location","enabled":true,"granted":true}`, token))

	assert.Equal(t, 400, do("PUT", "/v1/settings/permissions",
		`{"permission":"camera","enabled":true}`, token))
}

func TestLogoutClearsSession(t *testing.T) {
	sessions, do := newTestApp(t, &fakeStore{})
	token := signToken(t, "alice@example.com", "Alice")

	require.Equal(t, 200, do("POST", "/v1/profile", `{"nickname":"Alice"}`, token))
	require.Equal(t, 200, do("DELETE", "/v1/session", "", token))

	sess := sessions.ForUser("alice@example.com")
	assert.Nil(t, sess.Profile())
	assert.Nil(t, sess.Room())
}
