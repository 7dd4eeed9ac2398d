package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	// URL is a redis:// connection URL.
	URL string

	// Password overrides the URL credential when non-empty.
	Password string

	// DB selects the logical database; negative keeps the URL value.
	DB int

	// MaxRetries and PoolSize override client defaults when positive.
	MaxRetries int
	PoolSize   int

	// KeyPrefix namespaces all keys; defaults to "sess".
	KeyPrefix string

	// Channel is the pub/sub channel for cross-process change events;
	// defaults to "sess:events". Empty string after applying the
	// default disables cross-process broadcast.
	Channel string
}

// RedisStore is the Redis-backed Store. TTLs map to native key expiry.
// Change events fan out to in-process subscribers synchronously and to
// other processes over a pub/sub channel; events echoed back from the
// channel are deduplicated by origin id so a process never sees its own
// write twice.
type RedisStore struct {
	client *redis.Client
	prefix string
	chName string
	origin string
	bcast  *broadcaster
	cancel context.CancelFunc
	done   chan struct{}
}

type redisEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// NewRedisStore connects to Redis and starts the cross-process event
// listener.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("session: invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis connect: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sess"
	}
	chName := cfg.Channel
	if chName == "" {
		chName = prefix + ":events"
	}

	listenCtx, listenCancel := context.WithCancel(context.Background())
	s := &RedisStore{
		client: client,
		prefix: prefix,
		chName: chName,
		origin: uuid.NewString(),
		bcast:  newBroadcaster(),
		cancel: listenCancel,
		done:   make(chan struct{}),
	}
	go s.listen(listenCtx)

	return s, nil
}

func (s *RedisStore) key(namespace, key string) string {
	return s.prefix + ":" + namespace + ":" + key
}

// Set stores value under (namespace, key) with native TTL.
func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte, opts SetOptions) error {
	if err := s.client.Set(ctx, s.key(namespace, key), value, opts.TTL).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	if !opts.SkipBroadcast {
		s.publish(ctx, Event{Namespace: namespace, Key: key, Op: OpSet})
	}
	return nil
}

// Get returns the stored value, or ErrNotFound when absent/expired.
func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(namespace, key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	return data, nil
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	if err := s.client.Del(ctx, s.key(namespace, key)).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	s.publish(ctx, Event{Namespace: namespace, Key: key, Op: OpDelete})
	return nil
}

// ClearAll removes every key under the store's prefix.
func (s *RedisStore) ClearAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("session: redis clear %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("session: redis clear scan: %w", err)
	}
	s.publish(ctx, Event{Op: OpClear})
	return nil
}

// Subscribe registers a change callback. It fires for local writes and
// for writes made by other processes sharing the channel.
func (s *RedisStore) Subscribe(fn func(Event)) func() {
	return s.bcast.subscribe(fn)
}

// Ping checks connectivity, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close stops the event listener and closes the connection pool.
func (s *RedisStore) Close() error {
	s.cancel()
	<-s.done
	return s.client.Close()
}

func (s *RedisStore) publish(ctx context.Context, ev Event) {
	s.bcast.publish(ev)

	payload, err := json.Marshal(redisEnvelope{Origin: s.origin, Event: ev})
	if err != nil {
		return
	}
	// Cross-process fanout is best-effort; local subscribers were
	// already notified.
	_ = s.client.Publish(ctx, s.chName, payload).Err()
}

func (s *RedisStore) listen(ctx context.Context) {
	defer close(s.done)

	sub := s.client.Subscribe(ctx, s.chName)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			if env.Origin == s.origin {
				continue
			}
			s.bcast.publish(env.Event)
		}
	}
}
