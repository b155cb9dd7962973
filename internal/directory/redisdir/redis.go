// Package redisdir provides a Redis-backed Directory client. It is the
// durable local fallback cache: the gate keeps operating against it while the
// remote Directory is unreachable or rejecting writes.
//
// Layout per collection: a hash `dir:<collection>` mapping record ID to the
// JSON-encoded field map, plus a list `dir:<collection>:order` preserving
// insertion order (merge ties and retention both depend on it).
package redisdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

const keyPrefix = "dir:"

// Client implements directory.Client on Redis.
type Client struct {
	rdb *redis.Client
}

func NewClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func hashKey(collection string) string {
	return keyPrefix + collection
}

func orderKey(collection string) string {
	return keyPrefix + collection + ":order"
}

func (c *Client) List(ctx context.Context, collection string) ([]directory.Record, error) {
	ids, err := c.rdb.LRange(ctx, orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s order: %w", collection, err)
	}
	if len(ids) == 0 {
		return []directory.Record{}, nil
	}
	raw, err := c.rdb.HMGet(ctx, hashKey(collection), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", collection, err)
	}
	out := make([]directory.Record, 0, len(ids))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// Order entry without a hash entry: record was deleted.
			continue
		}
		rec, err := decodeRecord(ids[i], s)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (directory.Record, error) {
	raw, err := c.rdb.HGet(ctx, hashKey(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return directory.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return directory.Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRecord(id, raw)
}

func (c *Client) Insert(ctx context.Context, collection string, rec directory.Record) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, rec.ID, err)
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey(collection), rec.ID, payload)
		pipe.RPush(ctx, orderKey(collection), rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, rec.ID, err)
	}
	return nil
}

// InsertGuarded appends under an optimistic WATCH transaction: if another
// writer appends a record for the same key between the read and the commit,
// the transaction aborts and the guard is re-evaluated as lost.
func (c *Client) InsertGuarded(ctx context.Context, collection string, rec directory.Record, g directory.Guard) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, rec.ID, err)
	}

	txf := func(tx *redis.Tx) error {
		ids, err := tx.LRange(ctx, orderKey(collection), 0, -1).Result()
		if err != nil {
			return err
		}
		lastID := ""
		if len(ids) > 0 {
			raw, err := tx.HMGet(ctx, hashKey(collection), ids...).Result()
			if err != nil {
				return err
			}
			for i, v := range raw {
				s, ok := v.(string)
				if !ok {
					continue
				}
				existing, err := decodeRecord(ids[i], s)
				if err != nil {
					return err
				}
				if existing.Field(g.KeyField) == g.Key {
					lastID = existing.ID
				}
			}
		}
		if lastID != g.ExpectedLastID {
			return sentinel.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hashKey(collection), rec.ID, payload)
			pipe.RPush(ctx, orderKey(collection), rec.ID)
			return nil
		})
		return err
	}

	err = c.rdb.Watch(ctx, txf, orderKey(collection))
	if errors.Is(err, redis.TxFailedErr) {
		// A concurrent append invalidated the watch; the guard has lost.
		return sentinel.ErrConflict
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("guarded insert %s/%s: %w", collection, rec.ID, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, collection string, rec directory.Record) error {
	exists, err := c.rdb.HExists(ctx, hashKey(collection), rec.ID).Result()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, rec.ID, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, rec.ID, err)
	}
	if err := c.rdb.HSet(ctx, hashKey(collection), rec.ID, payload).Err(); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, rec.ID, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	removed, err := c.rdb.HDel(ctx, hashKey(collection), id).Result()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	if err := c.rdb.LRem(ctx, orderKey(collection), 1, id).Err(); err != nil {
		return fmt.Errorf("delete %s/%s order: %w", collection, id, err)
	}
	return nil
}

func decodeRecord(id, raw string) (directory.Record, error) {
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return directory.Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return directory.Record{ID: id, Fields: fields}, nil
}
