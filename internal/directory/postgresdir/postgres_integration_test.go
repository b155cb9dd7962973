//go:build integration

package postgresdir_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory/postgresdir"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/sentinel"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/testutil/containers"
)

type PostgresDirSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	client   *postgresdir.Client
}

func TestPostgresDirSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDirSuite))
}

func (s *PostgresDirSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgresdir.Migrate(s.postgres.URL))
	s.client = postgresdir.NewClient(s.postgres.Pool)
}

func (s *PostgresDirSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "directory_records"))
}

func row(id, plate string) directory.Record {
	return directory.Record{ID: id, Fields: map[string]string{
		"patente":       plate,
		"fecha_ingreso": "2026-08-28T10:00:00Z",
	}}
}

func (s *PostgresDirSuite) TestInsertListOrderBySeq() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.client.Insert(ctx, "registros_entrada",
			row(fmt.Sprintf("m%d", i), "ABC123")))
	}

	recs, err := s.client.List(ctx, "registros_entrada")
	s.Require().NoError(err)
	s.Require().Len(recs, 3)
	for i, rec := range recs {
		s.Equal(fmt.Sprintf("m%d", i), rec.ID)
	}
}

func (s *PostgresDirSuite) TestDuplicateIDRejected() {
	ctx := context.Background()
	s.Require().NoError(s.client.Insert(ctx, "vehiculos", row("v1", "ABC123")))

	err := s.client.Insert(ctx, "vehiculos", row("v1", "ABC123"))
	s.ErrorIs(err, sentinel.ErrRejected, "unique violation is a server-side refusal")
}

func (s *PostgresDirSuite) TestGetUpdateDelete() {
	ctx := context.Background()
	s.Require().NoError(s.client.Insert(ctx, "vehiculos", row("v1", "ABC123")))

	rec, err := s.client.Get(ctx, "vehiculos", "v1")
	s.Require().NoError(err)
	s.Equal("ABC123", rec.Field("patente"))

	rec.Fields["marca"] = "Toyota"
	s.Require().NoError(s.client.Update(ctx, "vehiculos", rec))
	rec, err = s.client.Get(ctx, "vehiculos", "v1")
	s.Require().NoError(err)
	s.Equal("Toyota", rec.Field("marca"))

	s.Require().NoError(s.client.Delete(ctx, "vehiculos", "v1"))
	s.ErrorIs(s.client.Delete(ctx, "vehiculos", "v1"), sentinel.ErrNotFound)
}

// TestConcurrentGuardedInsert verifies that the advisory-lock guard admits
// exactly one writer per plate generation, the cross-client double-entry
// protection.
func (s *PostgresDirSuite) TestConcurrentGuardedInsert() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.client.InsertGuarded(ctx, "registros_entrada",
				row(fmt.Sprintf("m-%02d", n), "ABC123"),
				directory.Guard{KeyField: "patente", Key: "ABC123", ExpectedLastID: ""})
			switch {
			case err == nil:
				wins.Add(1)
			default:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one racer commits")
	s.Equal(int32(goroutines-1), conflicts.Load())

	recs, err := s.client.List(ctx, "registros_entrada")
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *PostgresDirSuite) TestGuardedInsertAdvancesGeneration() {
	ctx := context.Background()
	s.Require().NoError(s.client.InsertGuarded(ctx, "registros_entrada", row("m1", "ABC123"),
		directory.Guard{KeyField: "patente", Key: "ABC123", ExpectedLastID: ""}))

	// Stale guard: the log moved past the expected generation.
	err := s.client.InsertGuarded(ctx, "registros_entrada", row("m2", "ABC123"),
		directory.Guard{KeyField: "patente", Key: "ABC123", ExpectedLastID: ""})
	s.ErrorIs(err, sentinel.ErrConflict)

	// Fresh guard pinned to the current last record succeeds.
	s.Require().NoError(s.client.InsertGuarded(ctx, "registros_entrada", row("m3", "ABC123"),
		directory.Guard{KeyField: "patente", Key: "ABC123", ExpectedLastID: "m1"}))
}
