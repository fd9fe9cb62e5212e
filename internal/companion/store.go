package companion

import (
	"context"
	"errors"
	"fmt"
)

// Store is the key/value map behind the registry server.
type Store interface {
	// Get retrieves the value stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// List returns the keys starting with prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend
	Close() error
}

// Entry is a single key/value pair of the registry.
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// NotFoundError is returned when a key was never Set.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return e.Key + " is not registered"
}

// IsNotFound checks if an error is a missing key
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

var (
	// ErrUnavailable is returned when the registry does not answer.
	ErrUnavailable = errors.New("companion registry unavailable")

	// ErrPayloadTooLarge matches every *PayloadTooLargeError.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// PayloadTooLargeError is returned for messages above MaxPayload.
type PayloadTooLargeError struct {
	Key  string
	Size int
}

func (e *PayloadTooLargeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("payload for %s is %d bytes, above the %d byte limit", e.Key, e.Size, MaxPayload)
	}
	return fmt.Sprintf("payload is %d bytes, above the %d byte limit", e.Size, MaxPayload)
}

// Is reports whether target is ErrPayloadTooLarge
func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis" or "sql"
	Backend string
	// Prefix is prepended to every key by the redis backend
	Prefix string
	// Redis holds the redis backend settings
	Redis RedisConfig
	// SQL holds the sql backend settings
	SQL SQLConfig
}

// DefaultStoreConfig returns an in-memory configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend: "memory",
		Prefix:  "weave:",
		Redis:   DefaultRedisConfig(),
		SQL:     DefaultSQLConfig(),
	}
}

// OpenStore builds the backend named by cfg.Backend.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		rc := cfg.Redis
		if rc.Prefix == "" {
			rc.Prefix = cfg.Prefix
		}
		return NewRedisStoreWithConfig(ctx, rc)
	case "sql":
		return OpenSQLStore(ctx, cfg.SQL)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want memory, redis or sql)", cfg.Backend)
	}
}
