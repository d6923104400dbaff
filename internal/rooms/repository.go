package rooms

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/utils"
)

var ErrNotFound = errors.New("room not found")

// Repository owns the rooms collection and the per-(room, user) membership
// records that push fanout reads.
type Repository struct {
	rooms        *mongo.Collection
	participants *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	participants := db.Collection("room_participants")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("room_user_idx"),
	}
	_, _ = participants.Indexes().CreateOne(context.Background(), idx)
	return &Repository{rooms: db.Collection("rooms"), participants: participants}
}

func (r *Repository) Create(ctx context.Context, name, nickname string) (*models.Room, error) {
	room := &models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: utils.RFC3339(utils.NowUTC()),
		CreatedBy: nickname,
	}
	if _, err := r.rooms.InsertOne(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.rooms.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Room
	for cur.Next(ctx) {
		var room models.Room
		if err := cur.Decode(&room); err != nil {
			return nil, err
		}
		if room.Name == "" {
			room.Name = "Unnamed Room"
		}
		out = append(out, &room)
	}
	return out, cur.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// SaveParticipant upserts the (room, user) membership record, overwriting the
// push token and entry time for a returning user, and unions the user's email
// into the room's participant set. $addToSet keeps the set update atomic
// against concurrent joiners.
func (r *Repository) SaveParticipant(ctx context.Context, p *models.Participant) error {
	p.LastEnteredAt = utils.RFC3339(utils.NowUTC())

	filter, update := participantUpsert(p)
	opts := options.Update().SetUpsert(true)
	if _, err := r.participants.UpdateOne(ctx, filter, update, opts); err != nil {
		return err
	}

	_, err := r.rooms.UpdateOne(ctx, bson.M{"_id": p.RoomID},
		bson.M{"$addToSet": bson.M{"participants": p.Email}})
	return err
}

// participantUpsert builds the merge-on-write filter and update for one
// membership record.
func participantUpsert(p *models.Participant) (bson.M, bson.M) {
	filter := bson.M{"room_id": p.RoomID, "user_id": p.UserID}
	update := bson.M{"$set": bson.M{
		"room_id":         p.RoomID,
		"user_id":         p.UserID,
		"email":           p.Email,
		"fcm_token":       p.FCMToken,
		"last_entered_at": p.LastEnteredAt,
	}}
	return filter, update
}

func (r *Repository) Participants(ctx context.Context, roomID string) ([]*models.Participant, error) {
	cur, err := r.participants.Find(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Participant
	for cur.Next(ctx) {
		var p models.Participant
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}
