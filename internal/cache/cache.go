package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Book Cache Operations

// SetBook caches book metadata
func (c *Cache) SetBook(ctx context.Context, book *models.Book, ttl time.Duration) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}

	key := fmt.Sprintf("book:%s", book.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetBook retrieves book metadata from cache
func (c *Cache) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	key := fmt.Sprintf("book:%s", bookID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get book from cache: %w", err)
	}

	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to unmarshal book: %w", err)
	}

	return &book, nil
}

// DeleteBook removes a book from cache
func (c *Cache) DeleteBook(ctx context.Context, bookID string) error {
	key := fmt.Sprintf("book:%s", bookID)
	return c.client.Del(ctx, key).Err()
}

// Listing Cache Operations
//
// Catalog listings (featured, new releases, genre shelves) are cached as
// whole JSON arrays under a shelf key and invalidated on any catalog write.

// SetShelf caches a ranked book listing
func (c *Cache) SetShelf(ctx context.Context, shelf string, books []*models.Book, ttl time.Duration) error {
	data, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("failed to marshal shelf: %w", err)
	}

	key := fmt.Sprintf("shelf:%s", shelf)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetShelf retrieves a ranked book listing from cache
func (c *Cache) GetShelf(ctx context.Context, shelf string) ([]*models.Book, error) {
	key := fmt.Sprintf("shelf:%s", shelf)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get shelf from cache: %w", err)
	}

	var books []*models.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shelf: %w", err)
	}

	return books, nil
}

// InvalidateShelves drops every cached listing after a catalog write
func (c *Cache) InvalidateShelves(ctx context.Context) error {
	return c.DeletePattern(ctx, "shelf:*")
}

// Rate Limiting Operations

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return count <= limit, nil
}

// Batch Operations

// DeletePattern deletes all keys matching a pattern
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Exists checks if a key exists
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// SetWithJSON sets a value with JSON marshaling
func (c *Cache) SetWithJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetWithJSON gets a value with JSON unmarshaling
func (c *Cache) GetWithJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil // Cache miss
		}
		return fmt.Errorf("failed to get value from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
