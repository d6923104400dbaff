package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/session"
	"github.com/Nishan666/roomchat/internal/utils"
)

type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
)

// View is one published snapshot of the core's client-facing state.
type View struct {
	Messages   []models.Message `json:"messages"`
	Loading    bool             `json:"loading"`
	Input      string           `json:"input"`
	ExitPrompt bool             `json:"exit_prompt"`
}

// Core owns the live subscription for one connected client: at most one
// active room listener, a normalized newest-first message list, a draft input
// buffer, and the exit confirmation flow. Snapshot callbacks from a
// subscription that has been replaced are discarded by generation check, so a
// slow callback from a previous room can never leak into the current view.
type Core struct {
	store   MessageStore
	sender  *Sender
	session *session.Store
	log     *zap.Logger
	welcome bool

	mu          sync.Mutex
	state       State
	generation  uint64
	unsubscribe func()
	messages    []models.Message
	input       string
	loading     bool
	exitPrompt  bool

	onUpdate func(View)
}

func NewCore(store MessageStore, sender *Sender, sess *session.Store, log *zap.Logger, welcome bool, onUpdate func(View)) *Core {
	return &Core{
		store:    store,
		sender:   sender,
		session:  sess,
		log:      log,
		welcome:  welcome,
		loading:  true,
		onUpdate: onUpdate,
	}
}

// Subscribe tears down any previous listener and attaches to roomID's
// message stream. An empty roomID is a no-op that reports not-loading with an
// empty list; there is no room to display.
func (c *Core) Subscribe(ctx context.Context, roomID, roomName, nickname string) error {
	c.Unsubscribe()

	c.mu.Lock()
	if roomID == "" {
		c.messages = nil
		c.loading = false
		c.state = StateIdle
		c.mu.Unlock()
		c.publish()
		return nil
	}
	c.generation++
	gen := c.generation
	c.loading = true
	c.state = StateSubscribing
	c.mu.Unlock()
	c.publish()

	unsub, err := c.store.Listen(ctx, roomID,
		func(msgs []models.Message) { c.applySnapshot(gen, roomID, roomName, nickname, msgs) },
		func(err error) { c.applyError(gen, err) },
	)
	if err != nil {
		c.mu.Lock()
		if gen == c.generation {
			c.loading = false
			c.state = StateIdle
		}
		c.mu.Unlock()
		c.publish()
		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		// a newer Subscribe or Unsubscribe won the race
		c.mu.Unlock()
		unsub()
		return nil
	}
	c.unsubscribe = unsub
	c.mu.Unlock()
	return nil
}

// SubscribeActive subscribes to whatever room the session currently selects.
func (c *Core) SubscribeActive(ctx context.Context) error {
	var roomID, roomName, nickname string
	if room := c.session.Room(); room != nil {
		roomID, roomName = room.RoomID, room.RoomName
	}
	if profile := c.session.Profile(); profile != nil {
		nickname = profile.Nickname
	}
	return c.Subscribe(ctx, roomID, roomName, nickname)
}

func (c *Core) applySnapshot(gen uint64, roomID, roomName, nickname string, raw []models.Message) {
	msgs := normalize(raw)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if len(msgs) == 0 && c.welcome && roomName != "" && nickname != "" {
		msgs = append(msgs, welcomeMessage(roomID, roomName, nickname))
	}
	c.messages = msgs
	c.loading = false
	c.state = StateLive
	c.mu.Unlock()
	c.publish()
}

// applyError clears loading and logs. No retry: the underlying stream keeps
// its own reconnection behavior and snapshots resume if it recovers.
func (c *Core) applyError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.mu.Unlock()
	c.log.Error("message listener error", zap.Error(err))
	c.publish()
}

// Unsubscribe detaches the live listener. Safe to call repeatedly and
// without a prior Subscribe.
func (c *Core) Unsubscribe() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	if unsub != nil {
		c.generation++
	}
	c.state = StateIdle
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Core) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.publish()
}

// Send submits the current draft. The draft clears as soon as validation
// passes, before the insert round-trips, so rapid sends are not serialized
// behind network latency. Validation failures leave the draft untouched.
func (c *Core) Send(ctx context.Context) error {
	c.mu.Lock()
	text := c.input
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	profile := c.session.Profile()
	room := c.session.Room()
	if profile == nil || profile.Email == "" || profile.Nickname == "" || room == nil || room.RoomID == "" {
		return ErrMissingContext
	}

	c.mu.Lock()
	c.input = ""
	c.mu.Unlock()
	c.publish()

	if err := c.sender.Send(ctx, text, profile.Email, profile.Nickname, room.RoomID); err != nil {
		// logged and dropped; there is no offline queue to park it in
		c.log.Error("send failed", zap.String("room_id", room.RoomID), zap.Error(err))
		return err
	}
	return nil
}

// HandleExitPress opens the exit confirmation. Nothing is torn down until
// ConfirmExit.
func (c *Core) HandleExitPress() {
	c.mu.Lock()
	c.exitPrompt = true
	c.mu.Unlock()
	c.publish()
}

func (c *Core) CancelExit() {
	c.mu.Lock()
	c.exitPrompt = false
	c.mu.Unlock()
	c.publish()
}

// ConfirmExit clears the session's room selection and detaches the listener.
// The user's membership record stays; participant sets are append-only from
// the client's side.
func (c *Core) ConfirmExit(ctx context.Context) error {
	c.mu.Lock()
	c.exitPrompt = false
	c.mu.Unlock()

	if err := c.session.ClearRoom(ctx); err != nil {
		return err
	}
	c.Unsubscribe()
	c.publish()
	return nil
}

func (c *Core) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]models.Message, len(c.messages))
	copy(msgs, c.messages)
	return View{Messages: msgs, Loading: c.loading, Input: c.input, ExitPrompt: c.exitPrompt}
}

func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Core) publish() {
	if c.onUpdate != nil {
		c.onUpdate(c.View())
	}
}

// normalize fills defensive defaults so a malformed record degrades the view
// instead of breaking it, and resolves the display timestamp: store-assigned
// when present, the sender's local timestamp while the authoritative one has
// not landed, now as the last resort.
func normalize(raw []models.Message) []models.Message {
	out := make([]models.Message, 0, len(raw))
	for _, m := range raw {
		if m.UserID == "" {
			m.UserID = "unknown"
		}
		if m.UserName == "" {
			m.UserName = "Anonymous"
		}
		if m.CreatedAt.IsZero() {
			if t, err := time.Parse(time.RFC3339, m.LocalCreatedAt); err == nil {
				m.CreatedAt = t
			} else {
				m.CreatedAt = utils.NowUTC()
			}
		}
		out = append(out, m)
	}
	return out
}

// welcomeMessage is client-only; it is never written back to the store.
func welcomeMessage(roomID, roomName, nickname string) models.Message {
	now := utils.NowUTC()
	return models.Message{
		ID:             uuid.NewString(),
		Text:           fmt.Sprintf("Welcome to the %q room, %s!", roomName, nickname),
		CreatedAt:      now,
		LocalCreatedAt: utils.RFC3339(now),
		UserID:         models.SystemUserID,
		UserName:       models.SystemUserName,
		RoomID:         roomID,
	}
}
