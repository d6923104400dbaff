package session

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds per-user session stores, each namespaced under its own KV
// prefix so one user's selections never bleed into another's.
type Factory struct {
	cli    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewFactory(cli *redis.Client, prefix string, log *zap.Logger) *Factory {
	return &Factory{cli: cli, prefix: prefix, log: log}
}

func (f *Factory) ForUser(userID string) *Store {
	return NewStore(f.KVForUser(userID), f.log)
}

// KVForUser exposes the user's raw KV namespace. Settings toggles live there
// alongside the session keys.
func (f *Factory) KVForUser(userID string) KV {
	return NewRedisKV(f.cli, f.prefix+":user:"+userID)
}
