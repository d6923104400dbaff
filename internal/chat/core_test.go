package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/session"
)

type fakeListener struct {
	roomID     string
	onSnapshot func([]models.Message)
	onError    func(error)
	closed     bool
}

type fakeStore struct {
	mu        sync.Mutex
	inserted  []*models.Message
	insertErr error
	listenErr error
	listeners []*fakeListener
}

func (f *fakeStore) Insert(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, m)
	return nil
}

func (f *fakeStore) Listen(_ context.Context, roomID string, onSnapshot func([]models.Message), onError func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listenErr != nil {
		return nil, f.listenErr
	}
	l := &fakeListener{roomID: roomID, onSnapshot: onSnapshot, onError: onError}
	f.listeners = append(f.listeners, l)
	return func() {
		f.mu.Lock()
		l.closed = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeStore) active() []*fakeListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeListener
	for _, l := range f.listeners {
		if !l.closed {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeStore) push(roomID string, msgs []models.Message) {
	for _, l := range f.active() {
		if l.roomID == roomID {
			l.onSnapshot(msgs)
		}
	}
}

func newTestSession(t *testing.T) *session.Store {
	t.Helper()
	sess := session.NewStore(session.NewMemoryKV(), zap.NewNop())
	require.NoError(t, sess.SaveProfile(context.Background(), session.Profile{Nickname: "Alice", Email: "alice@example.com"}))
	require.NoError(t, sess.SaveRoom(context.Background(), session.RoomSelection{RoomID: "room-1", RoomName: "Test Room"}))
	return sess
}

func newTestCore(t *testing.T, st *fakeStore) *Core {
	t.Helper()
	sess := newTestSession(t)
	sender := NewSender(st, nil, nil, zap.NewNop())
	return NewCore(st, sender, sess, zap.NewNop(), true, nil)
}

func msgAt(id, text string, at time.Time) models.Message {
	return models.Message{
		ID: id, Text: text, CreatedAt: at,
		UserID: "bob@example.com", UserName: "Bob", RoomID: "room-1",
	}
}

func TestSubscribeWithoutRoomIsNoOp(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)

	require.NoError(t, core.Subscribe(context.Background(), "", "Test Room", "Alice"))

	v := core.View()
	assert.False(t, v.Loading)
	assert.Empty(t, v.Messages)
	assert.Equal(t, StateIdle, core.State())
	assert.Empty(t, st.active())
}

func TestSnapshotKeepsDescendingOrder(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.Subscribe(context.Background(), "room-1", "Test Room", "Alice"))

	base := time.Now().UTC()
	st.push("room-1", []models.Message{
		msgAt("m3", "third", base.Add(2*time.Second)),
		msgAt("m2", "second", base.Add(time.Second)),
		msgAt("m1", "first", base),
	})

	v := core.View()
	require.Len(t, v.Messages, 3)
	for i := 1; i < len(v.Messages); i++ {
		assert.True(t, v.Messages[i-1].CreatedAt.After(v.Messages[i].CreatedAt),
			"list must stay newest-first")
	}
	assert.False(t, v.Loading)
	assert.Equal(t, StateLive, core.State())
}

func TestWelcomeInjection(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.Subscribe(context.Background(), "room-1", "Test Room", "Alice"))

	st.push("room-1", nil)

	v := core.View()
	require.Len(t, v.Messages, 1)
	welcome := v.Messages[0]
	assert.Equal(t, models.SystemUserID, welcome.UserID)
	assert.Contains(t, welcome.Text, "Test Room")
	assert.Contains(t, welcome.Text, "Alice")
	assert.NotEmpty(t, welcome.ID)

	// nothing was written back to the store
	assert.Empty(t, st.inserted)

	// once a real message lands the welcome must not come back
	st.push("room-1", []models.Message{msgAt("m1", "hello", time.Now().UTC())})
	v = core.View()
	require.Len(t, v.Messages, 1)
	assert.NotEqual(t, models.SystemUserID, v.Messages[0].UserID)
}

func TestWelcomeSkippedWithoutNames(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.Subscribe(context.Background(), "room-1", "", ""))

	st.push("room-1", nil)
	assert.Empty(t, core.View().Messages)
}

func TestSingleActiveSubscription(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)

	require.NoError(t, core.Subscribe(context.Background(), "room-a", "Room A", "Alice"))
	require.Len(t, st.active(), 1)
	stale := st.active()[0]

	require.NoError(t, core.Subscribe(context.Background(), "room-b", "Room B", "Alice"))
	active := st.active()
	require.Len(t, active, 1)
	assert.Equal(t, "room-b", active[0].roomID)

	// feed room B, then replay a slow callback from room A's old listener
	st.push("room-b", []models.Message{msgAt("b1", "from b", time.Now().UTC())})
	stale.onSnapshot([]models.Message{msgAt("a1", "from a", time.Now().UTC())})

	v := core.View()
	require.Len(t, v.Messages, 1)
	assert.Equal(t, "from b", v.Messages[0].Text)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.Subscribe(context.Background(), "room-1", "Test Room", "Alice"))

	core.Unsubscribe()
	stateAfterFirst := core.State()
	viewAfterFirst := core.View()

	assert.NotPanics(t, func() { core.Unsubscribe() })
	assert.Equal(t, stateAfterFirst, core.State())
	assert.Equal(t, viewAfterFirst.Messages, core.View().Messages)
	assert.Empty(t, st.active())
}

func TestListenerErrorClearsLoading(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.Subscribe(context.Background(), "room-1", "Test Room", "Alice"))

	require.True(t, core.View().Loading)
	st.active()[0].onError(errors.New("network down"))
	assert.False(t, core.View().Loading)

	// the listener stays attached; a later snapshot still lands
	st.push("room-1", []models.Message{msgAt("m1", "back", time.Now().UTC())})
	assert.Len(t, core.View().Messages, 1)
}

func TestSendRejectsWhitespaceOnly(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)

	core.SetInput("   ")
	err := core.Send(context.Background())
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, "   ", core.View().Input)
	assert.Empty(t, st.inserted)
}

func TestSendClearsInputBeforeInsertResolves(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("backend down")}
	core := newTestCore(t, st)

	core.SetInput("hi")
	err := core.Send(context.Background())
	require.Error(t, err)
	// the draft cleared even though the insert failed
	assert.Equal(t, "", core.View().Input)
}

func TestSendWithoutContextLeavesInput(t *testing.T) {
	st := &fakeStore{}
	sess := session.NewStore(session.NewMemoryKV(), zap.NewNop())
	sender := NewSender(st, nil, nil, zap.NewNop())
	core := NewCore(st, sender, sess, zap.NewNop(), true, nil)

	core.SetInput("hi")
	err := core.Send(context.Background())
	assert.ErrorIs(t, err, ErrMissingContext)
	assert.Equal(t, "hi", core.View().Input)
	assert.Empty(t, st.inserted)
}

func TestSendInsertCarriesIdentityAndFallbackTimestamp(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)

	core.SetInput("hello there")
	require.NoError(t, core.Send(context.Background()))

	require.Len(t, st.inserted, 1)
	m := st.inserted[0]
	assert.Equal(t, "hello there", m.Text)
	assert.Equal(t, "alice@example.com", m.UserID)
	assert.Equal(t, "Alice", m.UserName)
	assert.Equal(t, "room-1", m.RoomID)
	assert.NotEmpty(t, m.ID)
	_, err := time.Parse(time.RFC3339, m.LocalCreatedAt)
	assert.NoError(t, err)
}

func TestExitFlow(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.SubscribeActive(context.Background()))
	require.Len(t, st.active(), 1)

	core.HandleExitPress()
	assert.True(t, core.View().ExitPrompt)

	core.CancelExit()
	assert.False(t, core.View().ExitPrompt)
	assert.Len(t, st.active(), 1, "cancel must leave the subscription alone")

	core.HandleExitPress()
	require.NoError(t, core.ConfirmExit(context.Background()))
	assert.False(t, core.View().ExitPrompt)
	assert.Empty(t, st.active())
	assert.Equal(t, StateIdle, core.State())
}

func TestNormalizeDefaultsMalformedRecords(t *testing.T) {
	st := &fakeStore{}
	core := newTestCore(t, st)
	require.NoError(t, core.Subscribe(context.Background(), "room-1", "Test Room", "Alice"))

	local := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	st.push("room-1", []models.Message{
		{ID: "m1", RoomID: "room-1", LocalCreatedAt: local.Format(time.RFC3339)},
	})

	v := core.View()
	require.Len(t, v.Messages, 1)
	m := v.Messages[0]
	assert.Equal(t, "", m.Text)
	assert.Equal(t, "unknown", m.UserID)
	assert.Equal(t, "Anonymous", m.UserName)
	assert.True(t, m.CreatedAt.Equal(local), "local timestamp is the fallback")
}
