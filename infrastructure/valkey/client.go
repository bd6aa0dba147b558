package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	valkeylib "github.com/valkey-io/valkey-go"
)

const (
	// DefaultConnectTimeout is the maximum time to wait for initial connection
	DefaultConnectTimeout = 5 * time.Second
)

// Config holds the configuration for creating a Valkey client
type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration // Optional, defaults to DefaultConnectTimeout
}

// Client wraps valkey-go with key prefixing and the few commands the scheduler needs.
type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

// NewClient connects and pings. The caller owns Close.
func NewClient(cfg Config) (*Client, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to ping valkey (timeout: %v): %w", timeout, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}

	return &Client{
		inner:     inner,
		keyPrefix: prefix,
	}, nil
}

// Inner returns the underlying valkey-go client.
// Use this when you need direct access to the raw client.
func (c *Client) Inner() valkeylib.Client {
	return c.inner
}

// Close closes the Valkey connection.
func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key constructs a prefixed key from the given parts.
// Example: Key("lock", "sched1", "08:00") -> "tweetcast:lock:sched1:08:00"
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	key := c.keyPrefix
	for i, p := range parts {
		key += p
		if i < len(parts)-1 {
			key += ":"
		}
	}
	return key
}

// KeyPrefix returns the configured key prefix.
func (c *Client) KeyPrefix() string {
	return c.keyPrefix
}

// Ping tests the connection to Valkey with a context for timeout control.
func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

// IsConnected tests if the connection is healthy (uses a short timeout).
func (c *Client) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return c.Ping(ctx) == nil
}

// IsNil checks if an error returned by the client represents a Valkey NIL response.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}

// SetNX stores value under key only if the key is absent, expiring after ttl.
// It reports whether this call created the key.
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	cmd := c.inner.B().Set().Key(key).Value(value).Nx().Ex(ttl).Build()
	err := c.inner.Do(ctx, cmd).Error()
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get returns the value stored at key, or "" when it does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.inner.Do(ctx, c.inner.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if IsNil(err) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return c.inner.Do(ctx, c.inner.B().Del().Key(keys...).Build()).AsInt64()
}

// ConfigFrom maps the database section of the app config to a client config.
func ConfigFrom(db coreconfig.DatabaseConfig) Config {
	return Config{
		Address:   db.ValkeyAddress,
		Password:  db.ValkeyPassword,
		DB:        db.ValkeyDB,
		KeyPrefix: db.ValkeyKeyPrefix,
	}
}
