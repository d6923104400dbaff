package models

import "time"

// Sender identity used for synthetic messages injected by the client side.
const (
	SystemUserID   = "system"
	SystemUserName = "System"
)

type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	Text           string    `bson:"text" json:"text"`
	CreatedAt      time.Time `bson:"created_at,omitempty" json:"created_at"`
	LocalCreatedAt string    `bson:"local_created_at" json:"local_created_at"`
	UserID         string    `bson:"user_id" json:"user_id"`
	UserName       string    `bson:"user_name" json:"user_name"`
	RoomID         string    `bson:"room_id" json:"room_id"`
}

// System reports whether the message was injected client-side rather than
// read from the store.
func (m *Message) System() bool { return m.UserID == SystemUserID }
