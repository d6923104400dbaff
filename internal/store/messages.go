package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/models"
)

// MessageStore wraps the messages collection behind the two operations the
// rest of the app needs: insert and room-scoped live query.
type MessageStore struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewMessageStore(db *mongo.Database, log *zap.Logger) *MessageStore {
	coll := db.Collection("messages")
	// the room query needs the composite (room_id, created_at desc) index
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("room_created_idx"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), idx)
	return &MessageStore{coll: coll, log: log}
}

// Insert writes a message with a store-assigned creation timestamp. The
// record keeps the caller's local timestamp as a display fallback for readers
// that see the document before the authoritative timestamp does.
func (s *MessageStore) Insert(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	_, err := s.coll.InsertOne(ctx, m)
	return err
}

func (s *MessageStore) snapshot(ctx context.Context, roomID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

// Listen delivers the room's full, newest-first message list once immediately
// and again after every change touching the room. Each delivery replaces the
// previous one; callers must not diff. The returned function detaches the
// listener and may be called more than once.
func (s *MessageStore) Listen(ctx context.Context, roomID string, onSnapshot func([]models.Message), onError func(error)) (func(), error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "fullDocument.room_id", Value: roomID}}}},
	}
	cs, err := s.coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}

	lctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cs.Close(context.Background())

		deliver := func() {
			msgs, err := s.snapshot(lctx, roomID)
			if err != nil {
				if lctx.Err() == nil {
					onError(err)
				}
				return
			}
			onSnapshot(msgs)
		}

		deliver()
		for cs.Next(lctx) {
			deliver()
		}
		if err := cs.Err(); err != nil && lctx.Err() == nil {
			onError(err)
		}
	}()

	return cancel, nil
}
