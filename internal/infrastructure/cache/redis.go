package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pawday/backend/pkg/config"
	"github.com/pawday/backend/pkg/logger"
	"go.uber.org/zap"
)

var log = logger.NewLogger()

// Custom error types
var (
	ErrDocNotFound   = errors.New("docstore: document not found")
	ErrConnection    = errors.New("docstore: connection error")
	ErrInvalidConfig = errors.New("docstore: invalid configuration")
)

// Config holds the configuration for the Redis-backed document store
type Config struct {
	Addr             string
	Password         string
	DB               int
	PoolSize         int
	MinIdleConns     int
	MaxRetries       int
	ConnTimeout      time.Duration
	OperationTimeout time.Duration
	KeyPrefix        string
	MaxKeyLength     int
	CollectionTTL    time.Duration
	HealthInterval   time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		PoolSize:         100,
		MinIdleConns:     10,
		MaxRetries:       3,
		ConnTimeout:      5 * time.Second,
		OperationTimeout: 2 * time.Second,
		KeyPrefix:        "pawday:",
		MaxKeyLength:     256,
		CollectionTTL:    48 * time.Hour,
		HealthInterval:   10 * time.Second,
	}
}

// NewConfigFromEnv creates a store config from project configuration
func NewConfigFromEnv(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Addr = fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	if cfg.Server.Timeout > 0 {
		c.OperationTimeout = cfg.Server.Timeout
	}
	return c
}

// Client wraps the Redis client. It is both the document store engine (tasks,
// tombstones and overlays live here as JSON fields in per-day hashes) and the
// pub/sub bus that drives live subscriptions for both backing stores.
type Client struct {
	client    *redis.Client
	config    *Config
	closeOnce sync.Once
	health    int32 // 0 = healthy, 1 = unhealthy, using atomic operations

	healthMu        sync.Mutex
	healthListeners map[uint64]func(healthy bool)
	nextListenerID  uint64
	stopHealth      chan struct{}
}

// NewClient creates a new document store client with the provided configuration
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := &Client{
		client:     client,
		config:     cfg,
		stopHealth: make(chan struct{}),
	}

	go c.healthCheckLoop()

	return c, nil
}

// healthCheckLoop periodically checks store health and notifies listeners on
// transitions. This is the native connectivity signal the connectivity
// monitor consumes.
func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealth:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.OperationTimeout)
			err := c.HealthCheck(ctx)
			cancel()

			var next int32
			if err != nil {
				next = 1
				log.Error("Document store health check failed", zap.Error(err))
			}
			prev := atomic.SwapInt32(&c.health, next)
			if prev != next {
				c.notifyHealth(next == 0)
			}
		}
	}
}

func (c *Client) notifyHealth(healthy bool) {
	c.healthMu.Lock()
	listeners := make([]func(bool), 0, len(c.healthListeners))
	for _, fn := range c.healthListeners {
		listeners = append(listeners, fn)
	}
	c.healthMu.Unlock()

	for _, fn := range listeners {
		fn(healthy)
	}
}

// OnHealthChange registers a callback invoked on every healthy/unhealthy
// transition and returns a removal func. Callbacks run on the health loop
// goroutine and must not block; callers must remove themselves on teardown
// so a stale callback can never fire into a closed component.
func (c *Client) OnHealthChange(fn func(healthy bool)) func() {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	if c.healthListeners == nil {
		c.healthListeners = make(map[uint64]func(healthy bool))
	}
	id := c.nextListenerID
	c.nextListenerID++
	c.healthListeners[id] = fn
	return func() {
		c.healthMu.Lock()
		defer c.healthMu.Unlock()
		delete(c.healthListeners, id)
	}
}

// IsHealthy returns whether the store is currently healthy
func (c *Client) IsHealthy() bool {
	return atomic.LoadInt32(&c.health) == 0
}

// HealthCheck pings the store
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Close shuts down the health loop and the underlying client
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopHealth)
		err = c.client.Close()
	})
	return err
}

// withContext wraps the context with a timeout if none is set
func (c *Client) withContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.config.OperationTimeout)
	}
	return ctx, func() {}
}

// validateKey checks if the key is valid
func (c *Client) validateKey(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidConfig)
	}
	if len(key) > c.config.MaxKeyLength {
		return fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidConfig, c.config.MaxKeyLength)
	}
	return nil
}

// prefixKey adds the configured prefix to the key
func (c *Client) prefixKey(key string) string {
	return c.config.KeyPrefix + key
}

// PutDocument stores a JSON document under docID in the named collection
// hash. The write refreshes the collection TTL so per-day collections are
// garbage collected after the day has passed.
func (c *Client) PutDocument(ctx context.Context, collectionKey, docID string, doc interface{}) error {
	if err := c.validateKey(collectionKey); err != nil {
		return err
	}
	if !c.IsHealthy() {
		return ErrConnection
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: marshal document: %w", err)
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	key := c.prefixKey(collectionKey)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, docID, data)
	pipe.Expire(ctx, key, c.config.CollectionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// DeleteDocument removes a document from the named collection hash
func (c *Client) DeleteDocument(ctx context.Context, collectionKey, docID string) error {
	if err := c.validateKey(collectionKey); err != nil {
		return err
	}
	if !c.IsHealthy() {
		return ErrConnection
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	removed, err := c.client.HDel(ctx, c.prefixKey(collectionKey), docID).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s/%s", ErrDocNotFound, collectionKey, docID)
	}
	return nil
}

// GetDocument reads one document's raw JSON from the named collection hash
func (c *Client) GetDocument(ctx context.Context, collectionKey, docID string, out interface{}) error {
	if err := c.validateKey(collectionKey); err != nil {
		return err
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	data, err := c.client.HGet(ctx, c.prefixKey(collectionKey), docID).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("%w: %s/%s", ErrDocNotFound, collectionKey, docID)
		}
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return json.Unmarshal([]byte(data), out)
}

// GetCollection reads every document in the named collection hash as raw JSON
func (c *Client) GetCollection(ctx context.Context, collectionKey string) (map[string]string, error) {
	if err := c.validateKey(collectionKey); err != nil {
		return nil, err
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	docs, err := c.client.HGetAll(ctx, c.prefixKey(collectionKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return docs, nil
}

// PublishEvent publishes a JSON-encoded event to the specified channel
func (c *Client) PublishEvent(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, channel, data).Err()
}

// Subscribe starts a goroutine delivering every raw message payload on the
// channel to the handler. The returned function tears the subscription down;
// callers must invoke it when the owning view goes away.
func (c *Client) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (func(), error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so callers
	// cannot miss events published immediately after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	done := make(chan struct{})
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				log.Error("Failed to close subscription", zap.String("channel", channel), zap.Error(err))
			}
		})
	}
	return unsubscribe, nil
}

// Get retrieves a plain string value. Used by the response cache.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.validateKey(key); err != nil {
		return "", err
	}
	ctx, cancel := c.withContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefixKey(key)).Result()
	if err == redis.Nil {
		return "", ErrDocNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return val, nil
}

// Set stores a plain string value with a TTL.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.validateKey(key); err != nil {
		return err
	}
	ctx, cancel := c.withContext(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.prefixKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// ClearByPattern deletes every key matching the glob pattern. Scans in
// batches so large keyspaces never block the server.
func (c *Client) ClearByPattern(ctx context.Context, pattern string) error {
	ctx, cancel := c.withContext(ctx)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefixKey(pattern), 100).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrConnection, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.client
}
