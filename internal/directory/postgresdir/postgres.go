// Package postgresdir provides the PostgreSQL-backed Directory client: the
// remote authoritative store. Rows keep the legacy heterogeneous schemas as
// jsonb field maps; insertion order is the seq column.
package postgresdir

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Client implements directory.Client on PostgreSQL.
type Client struct {
	pool *pgxpool.Pool
}

func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

// Migrate applies the embedded schema migrations.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the pgx/v5 migrate driver scheme.
func migrateURL(databaseURL string) string {
	if rest, ok := strings.CutPrefix(databaseURL, "postgres://"); ok {
		return "pgx5://" + rest
	}
	if rest, ok := strings.CutPrefix(databaseURL, "postgresql://"); ok {
		return "pgx5://" + rest
	}
	return databaseURL
}

func (c *Client) List(ctx context.Context, collection string) ([]directory.Record, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, fields FROM directory_records WHERE collection = $1 ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("list %s: %w", collection, err), err)
	}
	defer rows.Close()

	var out []directory.Record
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		rec, err := decodeRecord(id, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list %s: %w", collection, err), err)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (directory.Record, error) {
	var payload []byte
	err := c.pool.QueryRow(ctx,
		`SELECT fields FROM directory_records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return directory.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return directory.Record{}, classify(fmt.Errorf("get %s/%s: %w", collection, id, err), err)
	}
	return decodeRecord(id, payload)
}

func (c *Client) Insert(ctx context.Context, collection string, rec directory.Record) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, rec.ID, err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO directory_records (collection, id, fields) VALUES ($1, $2, $3::jsonb)`,
		collection, rec.ID, string(payload),
	)
	if err != nil {
		return classify(fmt.Errorf("insert %s/%s: %w", collection, rec.ID, err), err)
	}
	return nil
}

// InsertGuarded serializes same-key appends with a transaction-scoped
// advisory lock, then re-checks the guard before inserting. The loser of a
// race observes a changed last record and gets sentinel.ErrConflict.
func (c *Client) InsertGuarded(ctx context.Context, collection string, rec directory.Record, g directory.Guard) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, rec.ID, err)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("guarded insert %s/%s: %w", collection, rec.ID, err), err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		collection, g.Key,
	); err != nil {
		return classify(fmt.Errorf("guarded insert lock %s/%s: %w", collection, rec.ID, err), err)
	}

	var lastID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM directory_records
		 WHERE collection = $1 AND fields->>$2 = $3
		 ORDER BY seq DESC LIMIT 1`,
		collection, g.KeyField, g.Key,
	).Scan(&lastID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return classify(fmt.Errorf("guarded insert read %s/%s: %w", collection, rec.ID, err), err)
	}
	if lastID != g.ExpectedLastID {
		return sentinel.ErrConflict
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO directory_records (collection, id, fields) VALUES ($1, $2, $3::jsonb)`,
		collection, rec.ID, string(payload),
	); err != nil {
		return classify(fmt.Errorf("guarded insert %s/%s: %w", collection, rec.ID, err), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("guarded insert commit %s/%s: %w", collection, rec.ID, err), err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, collection string, rec directory.Record) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, rec.ID, err)
	}
	tag, err := c.pool.Exec(ctx,
		`UPDATE directory_records SET fields = $3::jsonb WHERE collection = $1 AND id = $2`,
		collection, rec.ID, string(payload),
	)
	if err != nil {
		return classify(fmt.Errorf("update %s/%s: %w", collection, rec.ID, err), err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM directory_records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return classify(fmt.Errorf("delete %s/%s: %w", collection, id, err), err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// classify folds a raw pgx error into the store taxonomy: server-side
// refusals (constraint, permission, validation) become ErrRejected, anything
// else (dial failures, timeouts, broken connections) becomes ErrUnreachable.
// The wrapped message keeps the original cause for logs.
func classify(wrapped, cause error) error {
	var pgErr *pgconn.PgError
	if errors.As(cause, &pgErr) {
		return fmt.Errorf("%w: %v", sentinel.ErrRejected, wrapped)
	}
	return fmt.Errorf("%w: %v", sentinel.ErrUnreachable, wrapped)
}

func decodeRecord(id string, payload []byte) (directory.Record, error) {
	fields := map[string]string{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return directory.Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return directory.Record{ID: id, Fields: fields}, nil
}
