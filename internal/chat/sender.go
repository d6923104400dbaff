package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/events"
	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/utils"
)

var (
	// ErrEmptyMessage rejects whitespace-only text before any store call.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrMissingContext means sender identity or room selection is unknown.
	ErrMissingContext = errors.New("sender or room context missing")
)

// MessageStore is the adapter surface the sync core talks to.
type MessageStore interface {
	Insert(ctx context.Context, m *models.Message) error
	Listen(ctx context.Context, roomID string, onSnapshot func([]models.Message), onError func(error)) (func(), error)
}

type FanoutNotifier interface {
	NotifyRoom(ctx context.Context, roomID, senderID, senderName, text string)
}

type EventPublisher interface {
	PublishMessageSent(ctx context.Context, ev events.MessageSent) error
}

// Sender runs the send pipeline: validate, insert with a client id and a
// local timestamp fallback, then best-effort fanout and event publish.
// Fanout and publish are allowed to be nil.
type Sender struct {
	store  MessageStore
	fanout FanoutNotifier
	events EventPublisher
	log    *zap.Logger
}

func NewSender(store MessageStore, fanout FanoutNotifier, events EventPublisher, log *zap.Logger) *Sender {
	return &Sender{store: store, fanout: fanout, events: events, log: log}
}

func (s *Sender) Send(ctx context.Context, text, senderID, senderName, roomID string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if senderID == "" || senderName == "" || roomID == "" {
		return ErrMissingContext
	}

	now := utils.NowUTC()
	m := &models.Message{
		ID:             uuid.NewString(),
		Text:           text,
		LocalCreatedAt: utils.RFC3339(now),
		UserID:         senderID,
		UserName:       senderName,
		RoomID:         roomID,
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return err
	}

	// Everything past the insert is best effort. The message is in; a
	// failed push or event never reaches the sender.
	if s.fanout != nil {
		s.fanout.NotifyRoom(ctx, roomID, senderID, senderName, text)
	}
	if s.events != nil {
		ev := events.MessageSent{
			MessageID:  m.ID,
			RoomID:     roomID,
			SenderID:   senderID,
			SenderName: senderName,
			Text:       text,
			CreatedAt:  m.CreatedAt,
		}
		if err := s.events.PublishMessageSent(ctx, ev); err != nil {
			s.log.Warn("message.sent publish failed", zap.String("room_id", roomID), zap.Error(err))
		}
	}
	return nil
}
