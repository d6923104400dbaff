package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Persisted keys. Settings toggles live in the same KV under their own keys.
const (
	KeyProfile  = "profileData"
	KeyRoom     = "roomData"
	KeyFCMToken = "fcmToken"
	KeyTopics   = "subscribedTopics"
)

type Profile struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

type RoomSelection struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// Store holds the process-wide session selection: the active profile and the
// active room. It replaces the source system's ambient globals with one owned
// object whose lifecycle is load at startup, save on change, clear on exit
// and logout.
type Store struct {
	mu      sync.RWMutex
	kv      KV
	log     *zap.Logger
	profile *Profile
	room    *RoomSelection
}

func NewStore(kv KV, log *zap.Logger) *Store {
	return &Store{kv: kv, log: log}
}

// Load hydrates the in-memory selection from the KV store. Missing keys are
// normal on first launch; malformed payloads are dropped rather than kept.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, err := s.kv.Get(ctx, KeyProfile); err == nil {
		var p Profile
		if uerr := json.Unmarshal([]byte(raw), &p); uerr != nil {
			s.log.Warn("dropping malformed session payload", zap.String("key", KeyProfile), zap.Error(uerr))
		} else {
			s.profile = &p
		}
	} else if !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	if raw, err := s.kv.Get(ctx, KeyRoom); err == nil {
		var r RoomSelection
		if uerr := json.Unmarshal([]byte(raw), &r); uerr != nil {
			s.log.Warn("dropping malformed session payload", zap.String("key", KeyRoom), zap.Error(uerr))
		} else {
			s.room = &r
		}
	} else if !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	return nil
}

func (s *Store) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Store) Room() *RoomSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyProfile, string(raw)); err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return nil
}

func (s *Store) SaveRoom(ctx context.Context, r RoomSelection) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyRoom, string(raw)); err != nil {
		return err
	}
	s.mu.Lock()
	s.room = &r
	s.mu.Unlock()
	return nil
}

// SaveFCMToken mirrors the device's current push token. Overwritten on each
// refresh.
func (s *Store) SaveFCMToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, KeyFCMToken, token)
}

// ClearRoom drops the active room selection, demoting the client back to room
// selection. The user stays in the room's participant set.
func (s *Store) ClearRoom(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyRoom); err != nil {
		return err
	}
	s.mu.Lock()
	s.room = nil
	s.mu.Unlock()
	return nil
}

// ClearAll wipes both selections on logout.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyProfile); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, KeyRoom); err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = nil
	s.room = nil
	s.mu.Unlock()
	return nil
}
