package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/models"
)

// ParticipantSource is the slice of the membership registry fanout needs.
type ParticipantSource interface {
	Participants(ctx context.Context, roomID string) ([]*models.Participant, error)
}

// Fanout pushes a notification to every other participant of a room after a
// message lands. Delivery is best effort: a failed recipient is logged and
// skipped, and nothing reaches the sender.
type Fanout struct {
	registry ParticipantSource
	pusher   Pusher
	log      *zap.Logger
}

func NewFanout(registry ParticipantSource, pusher Pusher, log *zap.Logger) *Fanout {
	return &Fanout{registry: registry, pusher: pusher, log: log}
}

// NotifyRoom never returns an error; the send already succeeded and fanout
// outcomes must not affect it.
func (f *Fanout) NotifyRoom(ctx context.Context, roomID, senderID, senderName, text string) {
	participants, err := f.registry.Participants(ctx, roomID)
	if err != nil {
		f.log.Error("fanout: loading participants", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	for _, p := range participants {
		if p.UserID == senderID || p.FCMToken == "" {
			continue
		}
		push := Push{
			Token: p.FCMToken,
			Notification: PushNotification{
				Title: fmt.Sprintf("New message in %s", senderName),
				Body:  text,
			},
			Data: PushData{RoomID: roomID, SenderID: senderID, MessageText: text},
		}
		if err := f.pusher.Send(ctx, push); err != nil {
			f.log.Warn("fanout: recipient delivery failed",
				zap.String("room_id", roomID),
				zap.String("user_id", p.UserID),
				zap.Error(err))
		}
	}
}
