package voxel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/sasha-s/go-deadlock"
)

// Store keeps encoded chunks that were unloaded from a Grid.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

var ErrMissing = fmt.Errorf("chunk missing")

type MemoryStore struct {
	mutex deadlock.Mutex
	data  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrMissing
	}
	return data, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, data []byte) error {
	m.mutex.Lock()
	m.data[key] = data
	m.mutex.Unlock()
	return nil
}

// FSStore keeps one file per chunk in a directory.
type FSStore string

func (f FSStore) getPath(key string) string {
	return filepath.Join(string(f), key)
}

func (f FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.getPath(key))
	if os.IsNotExist(err) {
		return nil, ErrMissing
	}
	return data, err
}

func (f FSStore) Set(ctx context.Context, key string, data []byte) error {
	if err := os.MkdirAll(string(f), 0755); err != nil {
		return err
	}
	return os.WriteFile(f.getPath(key), data, 0644)
}

const (
	CHUNK_KEY    = "voxphys-%s"
	CHUNK_EXPIRY = time.Duration(24 * time.Hour)
)

type RedisStore struct {
	client *redis.Client
	expiry time.Duration
}

func NewRedisStore(client *redis.Client, expiry time.Duration) *RedisStore {
	if expiry == 0 {
		expiry = CHUNK_EXPIRY
	}
	return &RedisStore{
		client: client,
		expiry: expiry,
	}
}

func (r *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf(CHUNK_KEY, id)
	data, err := r.client.Get(ctx, key).Bytes()

	if err == redis.Nil {
		return nil, ErrMissing
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, id string, data []byte) error {
	key := fmt.Sprintf(CHUNK_KEY, id)
	return r.client.Set(ctx, key, data, r.expiry).Err()
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*FSStore)(nil)
var _ Store = (*RedisStore)(nil)
