// Package dualstore layers the remote authoritative Directory over the local
// fallback cache behind one directory.Client.
//
// Policy: every call tries the remote first. Reads merge in the local cache
// because the cache accumulates records independently whenever the remote
// cannot be used — a remote result, even a non-empty one, is never the whole
// story, and an empty remote result is indeterminate rather than
// authoritative. Writes that the remote refuses (unreachable or rejected)
// fall back to the local cache with the identical record; the caller only
// sees an error when both backends fail. Successful writes are additionally
// kept in a session overlay so immediately-subsequent reads in the same
// session observe them regardless of backend state (read-your-writes within
// a session; no guarantee across processes).
package dualstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
)

var tracer = otel.Tracer("dualstore")

// Store is the remote-first, local-fallback Directory façade.
type Store struct {
	remote directory.Client
	local  directory.Client
	logger *slog.Logger

	mu      sync.RWMutex
	overlay map[string][]directory.Record
}

func New(remote, local directory.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote:  remote,
		local:   local,
		logger:  logger,
		overlay: make(map[string][]directory.Record),
	}
}

// List returns the merged view of both backends plus the session overlay,
// deduplicated by record ID with remote order first. Only when both backends
// fail does the read fail.
func (s *Store) List(ctx context.Context, collection string) ([]directory.Record, error) {
	ctx, span := tracer.Start(ctx, "dualstore.List",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	remoteRecs, remoteErr := s.remote.List(ctx, collection)
	if remoteErr != nil {
		s.logger.WarnContext(ctx, "remote list failed, serving cache",
			"collection", collection, "error", remoteErr)
	}
	localRecs, localErr := s.local.List(ctx, collection)
	if remoteErr != nil && localErr != nil {
		return nil, fmt.Errorf("list %s: remote and cache failed: %w", collection, remoteErr)
	}

	seen := make(map[string]bool)
	merged := make([]directory.Record, 0, len(remoteRecs)+len(localRecs))
	appendRecs := func(recs []directory.Record) {
		for _, rec := range recs {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			merged = append(merged, rec)
		}
	}
	appendRecs(remoteRecs)
	if localErr == nil {
		appendRecs(localRecs)
	}

	s.mu.RLock()
	appendRecs(s.overlay[collection])
	s.mu.RUnlock()

	return merged, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (directory.Record, error) {
	rec, err := s.remote.Get(ctx, collection, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "remote get failed, serving cache",
			"collection", collection, "id", id, "error", err)
	}
	rec, localErr := s.local.Get(ctx, collection, id)
	if localErr == nil {
		return rec, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, oRec := range s.overlay[collection] {
		if oRec.ID == id {
			return oRec.Clone(), nil
		}
	}
	return directory.Record{}, sentinel.ErrNotFound
}

// Insert writes remote-first. A refused remote write falls back to the local
// cache with the identical record; the caller is not told unless both fail.
// A successful remote write is mirrored into the cache opportunistically.
func (s *Store) Insert(ctx context.Context, collection string, rec directory.Record) error {
	ctx, span := tracer.Start(ctx, "dualstore.Insert",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	remoteErr := s.remote.Insert(ctx, collection, rec)
	if remoteErr == nil {
		s.mirrorLocal(ctx, collection, rec)
		s.remember(collection, rec)
		return nil
	}
	s.logger.WarnContext(ctx, "remote insert refused, falling back to cache",
		"collection", collection, "id", rec.ID, "error", remoteErr)

	if localErr := s.local.Insert(ctx, collection, rec); localErr != nil {
		return fmt.Errorf("insert %s/%s: remote and cache failed: %w", collection, rec.ID, remoteErr)
	}
	s.remember(collection, rec)
	return nil
}

// InsertGuarded applies the same fallback policy. A lost remote guard is not
// taken at face value: records written to the cache during an outage never
// reach the remote, so after recovery the remote evaluates the guard against
// an incomplete log and loses it with no concurrent writer anywhere. The
// conflict is re-checked against the merged view — the same scan writers pin
// their guards on — and only a moved merged view surfaces as a conflict; an
// intact guard means the remote is merely behind the cache, and the record
// commits through the cache's guarded path instead.
func (s *Store) InsertGuarded(ctx context.Context, collection string, rec directory.Record, g directory.Guard) error {
	ctx, span := tracer.Start(ctx, "dualstore.InsertGuarded",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	remoteErr := s.remote.InsertGuarded(ctx, collection, rec, g)
	if remoteErr == nil {
		s.mirrorLocal(ctx, collection, rec)
		s.remember(collection, rec)
		return nil
	}
	if errors.Is(remoteErr, sentinel.ErrConflict) {
		lastID, err := s.mergedLastID(ctx, collection, g)
		if err != nil || lastID != g.ExpectedLastID {
			return remoteErr
		}
		s.logger.WarnContext(ctx, "remote guard behind cache, committing via cache",
			"collection", collection, "id", rec.ID)
		if localErr := s.local.InsertGuarded(ctx, collection, rec, g); localErr != nil {
			if errors.Is(localErr, sentinel.ErrConflict) {
				return localErr
			}
			return fmt.Errorf("guarded insert %s/%s: remote behind and cache failed: %w",
				collection, rec.ID, localErr)
		}
		s.remember(collection, rec)
		return nil
	}
	s.logger.WarnContext(ctx, "remote guarded insert refused, falling back to cache",
		"collection", collection, "id", rec.ID, "error", remoteErr)

	localErr := s.local.InsertGuarded(ctx, collection, rec, g)
	if localErr == nil {
		s.remember(collection, rec)
		return nil
	}
	if errors.Is(localErr, sentinel.ErrConflict) {
		return localErr
	}
	return fmt.Errorf("guarded insert %s/%s: remote and cache failed: %w", collection, rec.ID, remoteErr)
}

func (s *Store) Update(ctx context.Context, collection string, rec directory.Record) error {
	remoteErr := s.remote.Update(ctx, collection, rec)
	if remoteErr == nil {
		if err := s.local.Update(ctx, collection, rec); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache update mirror failed",
				"collection", collection, "id", rec.ID, "error", err)
		}
		s.remember(collection, rec)
		return nil
	}
	if errors.Is(remoteErr, sentinel.ErrNotFound) {
		// The record may only ever have reached the cache.
		if err := s.local.Update(ctx, collection, rec); err != nil {
			return err
		}
		s.remember(collection, rec)
		return nil
	}
	s.logger.WarnContext(ctx, "remote update refused, falling back to cache",
		"collection", collection, "id", rec.ID, "error", remoteErr)
	if localErr := s.local.Update(ctx, collection, rec); localErr != nil {
		return fmt.Errorf("update %s/%s: remote and cache failed: %w", collection, rec.ID, remoteErr)
	}
	s.remember(collection, rec)
	return nil
}

// Delete removes the record from both backends; records written during a
// fallback window exist only in the cache, so both must be attempted. The
// delete succeeds if either backend held the record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	remoteErr := s.remote.Delete(ctx, collection, id)
	localErr := s.local.Delete(ctx, collection, id)
	s.forget(collection, id)

	if remoteErr == nil || localErr == nil {
		return nil
	}
	if errors.Is(remoteErr, sentinel.ErrNotFound) && errors.Is(localErr, sentinel.ErrNotFound) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("delete %s/%s: remote and cache failed: %w", collection, id, remoteErr)
}

// mergedLastID finds the newest record for the guard key in the merged view,
// the scan guarded writers use to pin ExpectedLastID.
func (s *Store) mergedLastID(ctx context.Context, collection string, g directory.Guard) (string, error) {
	recs, err := s.List(ctx, collection)
	if err != nil {
		return "", err
	}
	lastID := ""
	for _, r := range recs {
		if r.Field(g.KeyField) == g.Key {
			lastID = r.ID
		}
	}
	return lastID, nil
}

// mirrorLocal keeps the cache opportunistically informed; failure only logs.
func (s *Store) mirrorLocal(ctx context.Context, collection string, rec directory.Record) {
	if err := s.local.Insert(ctx, collection, rec); err != nil {
		s.logger.DebugContext(ctx, "cache mirror failed",
			"collection", collection, "id", rec.ID, "error", err)
	}
}

func (s *Store) remember(collection string, rec directory.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.overlay[collection] {
		if existing.ID == rec.ID {
			s.overlay[collection][i] = rec.Clone()
			return
		}
	}
	s.overlay[collection] = append(s.overlay[collection], rec.Clone())
}

func (s *Store) forget(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.overlay[collection]
	for i := range recs {
		if recs[i].ID == id {
			s.overlay[collection] = append(recs[:i:i], recs[i+1:]...)
			return
		}
	}
}
