package marker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix prefixes every redis marker key.
const DefaultKeyPrefix = "genoa"

// RedisStore keeps markers as redis string keys <prefix>:marker:<stage>.
// SET is atomic, so a marker is either absent or complete.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// NewRedisStore connects to the redis server at url
// (redis://[:password@]host:port[/db]).
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis marker store requires a URL")
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis marker store: invalid URL: %w", err)
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: goredis.NewClient(opts), prefix: prefix}, nil
}

// Key returns the redis key for stage.
func (s *RedisStore) Key(stage string) string {
	return s.prefix + ":marker:" + stage
}

func (s *RedisStore) Done(ctx context.Context, stage string) (bool, error) {
	n, err := s.client.Exists(ctx, s.Key(stage)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check marker %s: %w", stage, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Get(ctx context.Context, stage string) (*Record, error) {
	b, err := s.client.Get(ctx, s.Key(stage)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get marker %s: %w", stage, err)
	}
	return Decode(b)
}

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	b, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.Key(rec.Stage), b, 0).Err(); err != nil {
		return fmt.Errorf("redis: set marker %s: %w", rec.Stage, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, stage string) error {
	if err := s.client.Del(ctx, s.Key(stage)).Err(); err != nil {
		return fmt.Errorf("redis: delete marker %s: %w", stage, err)
	}
	return nil
}

// Clear scans for every key under the marker prefix and deletes it.
func (s *RedisStore) Clear(ctx context.Context) error {
	pattern := s.Key("*")
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan markers: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: delete markers: %w", err)
	}
	return nil
}

func (s *RedisStore) Location() string {
	opts := s.client.Options()
	return fmt.Sprintf("redis://%s/%d %s", opts.Addr, opts.DB, strings.TrimSuffix(s.Key(""), ":"))
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
