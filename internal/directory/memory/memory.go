// Package memory provides an in-memory Directory client. It backs unit tests
// and serves as the zero-config local cache; it intentionally favors clarity
// over performance.
package memory

import (
	"context"
	"sync"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

// Client keeps every collection as an insertion-ordered slice guarded by one
// lock. Single-writer gate traffic never contends on it.
type Client struct {
	mu          sync.RWMutex
	collections map[string][]directory.Record
}

func NewClient() *Client {
	return &Client{collections: make(map[string][]directory.Record)}
}

func (c *Client) List(_ context.Context, collection string) ([]directory.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recs := c.collections[collection]
	out := make([]directory.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (c *Client) Get(_ context.Context, collection, id string) (directory.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.collections[collection] {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return directory.Record{}, sentinel.ErrNotFound
}

func (c *Client) Insert(_ context.Context, collection string, rec directory.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections[collection] = append(c.collections[collection], rec.Clone())
	return nil
}

func (c *Client) InsertGuarded(_ context.Context, collection string, rec directory.Record, g directory.Guard) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lastID := ""
	for _, existing := range c.collections[collection] {
		if existing.Field(g.KeyField) == g.Key {
			lastID = existing.ID
		}
	}
	if lastID != g.ExpectedLastID {
		return sentinel.ErrConflict
	}
	c.collections[collection] = append(c.collections[collection], rec.Clone())
	return nil
}

func (c *Client) Update(_ context.Context, collection string, rec directory.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs := c.collections[collection]
	for i := range recs {
		if recs[i].ID == rec.ID {
			recs[i] = rec.Clone()
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (c *Client) Delete(_ context.Context, collection, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs := c.collections[collection]
	for i := range recs {
		if recs[i].ID == id {
			c.collections[collection] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}
