package models

type Room struct {
	ID           string   `bson:"_id,omitempty" json:"id"`
	Name         string   `bson:"name" json:"name"`
	CreatedAt    string   `bson:"created_at" json:"created_at"`
	CreatedBy    string   `bson:"created_by" json:"created_by"`
	Participants []string `bson:"participants,omitempty" json:"participants,omitempty"`
}

// Participant is the per-(room, user) membership record. Re-entering a room
// overwrites the existing record for the same user instead of appending one.
type Participant struct {
	RoomID        string `bson:"room_id" json:"room_id"`
	UserID        string `bson:"user_id" json:"user_id"`
	Email         string `bson:"email" json:"email"`
	FCMToken      string `bson:"fcm_token" json:"fcm_token"`
	LastEnteredAt string `bson:"last_entered_at" json:"last_entered_at"`
}

type Notification struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	UserID    string `bson:"user_id" json:"user_id"`
	Title     string `bson:"title" json:"title"`
	Body      string `bson:"body" json:"body"`
	RoomID    string `bson:"room_id" json:"room_id"`
	Read      bool   `bson:"read" json:"read"`
	CreatedAt string `bson:"created_at" json:"created_at"`
}
