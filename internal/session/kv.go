package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by a KV when a key has never been set or was
// deleted.
var ErrKeyNotFound = errors.New("key not found")

// KV is the device-local key-value store the session and settings layers
// persist through.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type redisKV struct {
	cli    *redis.Client
	prefix string
}

func NewRedisKV(cli *redis.Client, prefix string) KV {
	return &redisKV{cli: cli, prefix: prefix}
}

func (r *redisKV) key(k string) string { return fmt.Sprintf("%s:kv:%s", r.prefix, k) }

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.cli.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	return r.cli.Set(ctx, r.key(key), value, 0).Err()
}

func (r *redisKV) Delete(ctx context.Context, key string) error {
	return r.cli.Del(ctx, r.key(key)).Err()
}

// MemoryKV is an in-process KV for tests.
type MemoryKV struct {
	m map[string]string
}

func NewMemoryKV() *MemoryKV { return &MemoryKV{m: make(map[string]string)} }

func (kv *MemoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := kv.m[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (kv *MemoryKV) Set(_ context.Context, key, value string) error {
	kv.m[key] = value
	return nil
}

func (kv *MemoryKV) Delete(_ context.Context, key string) error {
	delete(kv.m, key)
	return nil
}
