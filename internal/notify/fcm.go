package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type PushData struct {
	RoomID      string `json:"roomId"`
	SenderID    string `json:"senderId"`
	MessageText string `json:"messageText"`
}

type Push struct {
	Token        string           `json:"to"`
	Notification PushNotification `json:"notification"`
	Data         PushData         `json:"data"`
}

// Pusher delivers one push message to one device token.
type Pusher interface {
	Send(ctx context.Context, p Push) error
}

// FCMClient talks to the FCM HTTP endpoint. Calls run through a circuit
// breaker so a dead push backend stops burning a round-trip per recipient.
type FCMClient struct {
	endpoint  string
	serverKey string
	http      *http.Client
	cb        *gobreaker.CircuitBreaker
}

func NewFCMClient(endpoint, serverKey string, timeout time.Duration) *FCMClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "fcm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &FCMClient{
		endpoint:  endpoint,
		serverKey: serverKey,
		http:      &http.Client{Timeout: timeout},
		cb:        cb,
	}
}

func (c *FCMClient) Send(ctx context.Context, p Push) error {
	_, err := c.cb.Execute(func() (any, error) {
		body, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "key="+c.serverKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("fcm responded %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
