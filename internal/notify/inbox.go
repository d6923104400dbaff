package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/events"
	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/utils"
)

// Inbox stores an in-app notification document per recipient for each
// message-sent event consumed off the bus.
type Inbox struct {
	coll     *mongo.Collection
	registry ParticipantSource
	log      *zap.Logger
}

func NewInbox(db *mongo.Database, registry ParticipantSource, log *zap.Logger) *Inbox {
	return &Inbox{coll: db.Collection("notifications"), registry: registry, log: log}
}

func (i *Inbox) HandleMessageSent(ctx context.Context, ev events.MessageSent) error {
	participants, err := i.registry.Participants(ctx, ev.RoomID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if p.UserID == ev.SenderID {
			continue
		}
		n := models.Notification{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			Title:     fmt.Sprintf("New message in %s", ev.SenderName),
			Body:      ev.Text,
			RoomID:    ev.RoomID,
			CreatedAt: utils.RFC3339(utils.NowUTC()),
		}
		if _, err := i.coll.InsertOne(ctx, n); err != nil {
			i.log.Warn("inbox insert failed", zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
	return nil
}

func (i *Inbox) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := i.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	for cur.Next(ctx) {
		var n models.Notification
		if err := cur.Decode(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, cur.Err()
}
