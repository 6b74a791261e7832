//go:build integration

package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"namereg/internal/registry/models"
	"namereg/internal/registry/store/domain"
	id "namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
	"namereg/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *domain.PostgresStore
	owner    id.Address
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = domain.NewPostgres(s.postgres.DB)
	s.owner = id.BytesToAddress([]byte{0xaa})
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.ResetRegistry(context.Background()))
}

func (s *PostgresStoreSuite) TestRootIsMigrated() {
	ctx := context.Background()
	root, err := s.store.FindByID(ctx, id.RootDomainID)
	s.Require().NoError(err)
	s.True(root.IsRoot())
	s.True(root.IsPublic())

	count, err := s.store.CountByOwner(ctx, id.ZeroAddress)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestInsertRoundTrip() {
	ctx := context.Background()
	expires := time.Date(2031, 6, 1, 12, 0, 0, 0, time.UTC)

	orgID, err := s.store.Insert(ctx, &models.Domain{ParentID: 0, Prefix: "org", Name: "org"})
	s.Require().NoError(err)
	s.Equal(id.DomainID(1), orgID)

	appID, err := s.store.Insert(ctx, &models.Domain{ParentID: orgID, Prefix: "app", Name: "app.org", Owner: s.owner, ExpiresAt: expires})
	s.Require().NoError(err)
	s.Equal(id.DomainID(2), appID)

	d, err := s.store.FindByID(ctx, appID)
	s.Require().NoError(err)
	s.Equal(s.owner, d.Owner)
	s.True(expires.Equal(d.ExpiresAt))

	byName, err := s.store.FindIDByName(ctx, "app.org")
	s.Require().NoError(err)
	s.Equal(appID, byName)

	_, err = s.store.Insert(ctx, &models.Domain{ParentID: 0, Prefix: "org", Name: "org"})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestRollbackDoesNotConsumeIDs() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Insert(ctx, &models.Domain{ParentID: 0, Prefix: "tmp", Name: "tmp"}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindIDByName(ctx, "tmp")
	s.ErrorIs(err, sentinel.ErrNotFound)

	next, err := s.store.Insert(ctx, &models.Domain{ParentID: 0, Prefix: "org", Name: "org"})
	s.Require().NoError(err)
	s.Equal(id.DomainID(1), next)
}

func (s *PostgresStoreSuite) TestOperatorApprovalToggle() {
	ctx := context.Background()
	operator := id.BytesToAddress([]byte{0xbb})

	s.Require().NoError(s.store.SetOperatorApproval(ctx, s.owner, operator, true))
	s.Require().NoError(s.store.SetOperatorApproval(ctx, s.owner, operator, true))
	approved, err := s.store.OperatorApproval(ctx, s.owner, operator)
	s.Require().NoError(err)
	s.True(approved)

	s.Require().NoError(s.store.SetOperatorApproval(ctx, s.owner, operator, false))
	approved, err = s.store.OperatorApproval(ctx, s.owner, operator)
	s.Require().NoError(err)
	s.False(approved)
}

// TestConcurrentInsertsGetDistinctIDs verifies the counter row serializes id
// allocation across connections.
func (s *PostgresStoreSuite) TestConcurrentInsertsGetDistinctIDs() {
	ctx := context.Background()
	const goroutines = 20

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[id.DomainID]bool)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			label := string(rune('a'+idx%26)) + "x"
			for attempt := 0; attempt < 10; attempt++ {
				domainID, err := s.store.Insert(ctx, &models.Domain{ParentID: 0, Prefix: label, Name: label})
				if err == nil {
					mu.Lock()
					ids[domainID] = true
					mu.Unlock()
					return
				}
				// serialization failures are retried
			}
		}(i)
	}
	wg.Wait()

	s.Len(ids, goroutines)
	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(goroutines+1, count)
}
