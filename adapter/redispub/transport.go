// Package redispub forwards broker envelopes to external subscribers
// over Redis PUB/SUB. Delivery is fire-and-forget: Redis gives no
// durability, matching the broker's best-effort boundary contract.
package redispub

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xdispatch"
)

// Config for the Redis publisher.
type Config struct {
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// ChannelPrefix is prepended to every published channel name,
	// namespacing this process's events on a shared Redis.
	ChannelPrefix string

	// DialTimeout bounds the initial connectivity check.
	DialTimeout time.Duration
}

// Defaults returns a Config with local-development defaults.
func Defaults() Config {
	return Config{
		Addr:        "127.0.0.1:6379",
		DialTimeout: 2 * time.Second,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	return nil
}

// Transport publishes envelopes with Redis PUBLISH.
type Transport struct {
	cfg    Config
	client *redis.Client

	closeOnce sync.Once
	closed    atomic.Bool
	published atomic.Uint64
}

var _ xdispatch.Transport = (*Transport)(nil)

// New connects to Redis and verifies connectivity.
func New(cfg Config) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.TLSServerName,
		}
	}
	client := redis.NewClient(opts)

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redispub: ping: %w", err)
	}

	return &Transport{cfg: cfg, client: client}, nil
}

// Publish sends the payload to the (prefixed) channel.
func (t *Transport) Publish(ctx context.Context, channel string, payload []byte) error {
	if t.closed.Load() {
		return fmt.Errorf("redispub: transport is closed")
	}
	if err := t.client.Publish(ctx, t.cfg.ChannelPrefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("redispub: publish: %w", err)
	}
	t.published.Add(1)
	return nil
}

// Published returns the number of envelopes sent.
func (t *Transport) Published() uint64 { return t.published.Load() }

// Close releases the Redis connection. Idempotent.
func (t *Transport) Close(context.Context) error {
	var err error
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		err = t.client.Close()
	})
	return err
}
