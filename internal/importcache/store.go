package importcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/andygrunwald/fuelradar/internal/models"
)

// DefaultMemoryEntries bounds the in-memory cache. City-scale usage stays far
// below it.
const DefaultMemoryEntries = 500

// Store is a bounds-keyed ghost station cache backend. Implementations must
// be safe for concurrent use.
type Store interface {
	// Name identifies the backend in logs and /status.
	Name() string
	// Get returns the cached ghosts for key and whether the key was present.
	Get(ctx context.Context, key string) ([]models.GhostStation, bool, error)
	// Set stores ghosts under key, replacing any previous value.
	Set(ctx context.Context, key string, ghosts []models.GhostStation) error
	// Len returns the number of cached viewports.
	Len(ctx context.Context) (int, error)
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local LRU store.
type MemoryStore struct {
	cache *lru.Cache[string, []models.GhostStation]
}

// NewMemoryStore creates a MemoryStore holding at most size viewports.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	c, err := lru.New[string, []models.GhostStation](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &MemoryStore{cache: c}, nil
}

// Name returns "memory".
func (m *MemoryStore) Name() string { return "memory" }

// Get returns a copy of the cached ghosts for key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]models.GhostStation, bool, error) {
	ghosts, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneGhosts(ghosts), true, nil
}

// Set stores a copy of ghosts under key.
func (m *MemoryStore) Set(_ context.Context, key string, ghosts []models.GhostStation) error {
	m.cache.Add(key, cloneGhosts(ghosts))
	return nil
}

// Len returns the number of cached viewports.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	return m.cache.Len(), nil
}

// Clear drops every entry.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.cache.Purge()
	return nil
}

// RedisStore shares imported ghosts between processes through Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the keys; defaults to "fuelradar:ghosts:".
	Prefix string
	// TTL expires entries; zero keeps them until Clear.
	TTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreFromClient(client, opts.Prefix, opts.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "fuelradar:ghosts:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Name returns "redis".
func (r *RedisStore) Name() string { return "redis" }

// Get loads the ghosts cached under key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]models.GhostStation, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var ghosts []models.GhostStation
	if err := json.Unmarshal(data, &ghosts); err != nil {
		return nil, false, fmt.Errorf("decoding cached ghosts: %w", err)
	}
	return ghosts, true, nil
}

// Set stores ghosts under key with the configured TTL.
func (r *RedisStore) Set(ctx context.Context, key string, ghosts []models.GhostStation) error {
	if ghosts == nil {
		ghosts = []models.GhostStation{}
	}
	data, err := json.Marshal(ghosts)
	if err != nil {
		return fmt.Errorf("encoding ghosts: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Len counts the keys under the store prefix.
func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Clear deletes every key under the store prefix.
func (r *RedisStore) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func cloneGhosts(in []models.GhostStation) []models.GhostStation {
	if in == nil {
		return []models.GhostStation{}
	}
	out := make([]models.GhostStation, len(in))
	copy(out, in)
	return out
}
