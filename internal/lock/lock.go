// Package lock serializes work per key, such as message sends to one conversation.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired is returned when the context ends before the lock is obtained
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrInvalidConfig is returned when a driver is missing a required option
	ErrInvalidConfig = errors.New("invalid lock configuration")
	// ErrInvalidDriver is returned for an unknown driver name
	ErrInvalidDriver = errors.New("invalid lock driver")
)

// Unlock releases a held lock. Calling it more than once is safe.
type Unlock func()

// Locker grants exclusive ownership of a key
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Driver selects a Locker implementation
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// Option configures a Locker
type Option func(*options)

type options struct {
	redisClient redis.UniversalClient
	ttl         time.Duration
	retry       time.Duration
	prefix      string
}

// WithRedisClient sets the client used by the redis driver
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithTTL bounds how long a redis lock survives a crashed holder
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithRetryInterval sets how often a contended redis lock is retried
func WithRetryInterval(interval time.Duration) Option {
	return func(o *options) {
		o.retry = interval
	}
}

// WithPrefix namespaces redis keys
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// New builds a Locker for the given driver
func New(driver Driver, opts ...Option) (Locker, error) {
	o := &options{
		ttl:    90 * time.Second,
		retry:  50 * time.Millisecond,
		prefix: "medmind:lock:",
	}
	for _, opt := range opts {
		opt(o)
	}

	switch driver {
	case DriverMemory:
		return NewMemoryLocker(), nil
	case DriverRedis:
		if o.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &RedisLocker{client: o.redisClient, ttl: o.ttl, retry: o.retry, prefix: o.prefix}, nil
	default:
		return nil, ErrInvalidDriver
	}
}

// ConversationKey is the lock key guarding sends to one conversation
func ConversationKey(conversationID string) string {
	return "conversation:" + conversationID
}
