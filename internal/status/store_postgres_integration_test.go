//go:build integration

package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regscope/internal/status"
	"regscope/pkg/platform/sentinel"
	"regscope/pkg/platform/tx"
	"regscope/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *status.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = status.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"global_status", "regulatory_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) full(name string) *status.GlobalStatus {
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	return &status.GlobalStatus{
		INN:            name,
		NormalizedName: name,
		ATCCode:        "L01XC18",
		FDA: &status.Approval{
			Agency: status.AgencyFDA, Status: status.StatusApproved,
			ApprovalDate: &date, BrandName: name + " brand",
			Breakthrough: true,
		},
		WHOEssential:    true,
		GlobalScore:     85,
		HotIssueLevel:   status.LevelHot,
		HotIssueReasons: []string{"FDA approved", "FDA breakthrough"},
		LastUpdated:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestUpsertRoundTrip() {
	ctx := context.Background()
	gs := s.full("testonib")
	s.Require().NoError(s.store.Upsert(ctx, gs))

	got, err := s.store.Get(ctx, "testonib")
	s.Require().NoError(err)
	s.Equal(gs.INN, got.INN)
	s.Equal(gs.ATCCode, got.ATCCode)
	s.Equal(gs.GlobalScore, got.GlobalScore)
	s.Equal(gs.HotIssueLevel, got.HotIssueLevel)
	s.Equal(gs.HotIssueReasons, got.HotIssueReasons)
	s.True(gs.WHOEssential)
	s.Require().NotNil(got.FDA)
	s.Equal(status.StatusApproved, got.FDA.Status)
	s.True(got.FDA.Breakthrough)
	s.Require().NotNil(got.FDA.ApprovalDate)
	s.Nil(got.EMA)
	s.Nil(got.MFDS)
}

func (s *PostgresStoreSuite) TestUpsertIsIdempotentPerKey() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.full("testonib")))

	updated := s.full("testonib")
	updated.GlobalScore = 40
	updated.HotIssueLevel = status.LevelMid
	s.Require().NoError(s.store.Upsert(ctx, updated))

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(40, all[0].GlobalScore)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListHotAndByLevel() {
	ctx := context.Background()
	hot := s.full("hotdrug")
	mid := s.full("middrug")
	mid.GlobalScore = 45
	mid.HotIssueLevel = status.LevelMid
	s.Require().NoError(s.store.Upsert(ctx, hot))
	s.Require().NoError(s.store.Upsert(ctx, mid))

	hots, err := s.store.ListHot(ctx, 60, 20)
	s.Require().NoError(err)
	s.Require().Len(hots, 1)
	s.Equal("hotdrug", hots[0].NormalizedName)

	mids, err := s.store.ListByLevel(ctx, status.LevelMid)
	s.Require().NoError(err)
	s.Require().Len(mids, 1)
	s.Equal("middrug", mids[0].NormalizedName)
}

func (s *PostgresStoreSuite) TestSearchMatchesBrandName() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.full("pembrolizumab")))

	out, err := s.store.Search(ctx, "PEMBROLIZUMAB BRAND", 10)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal("pembrolizumab", out[0].NormalizedName)
}

func (s *PostgresStoreSuite) TestEventDedup() {
	ctx := context.Background()
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	evt := &status.Event{
		NormalizedName: "testonib",
		Agency:         status.AgencyFDA,
		EventType:      "approval",
		EventDate:      &date,
		Title:          "Testonib brand",
	}

	written, err := s.store.UpsertEvent(ctx, evt)
	s.Require().NoError(err)
	s.True(written)

	written, err = s.store.UpsertEvent(ctx, evt)
	s.Require().NoError(err)
	s.False(written)

	events, err := s.store.ListEvents(ctx, "testonib", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("Testonib brand", events[0].Title)
}

func (s *PostgresStoreSuite) TestEventDedupWithoutDate() {
	ctx := context.Background()
	undated := func() *status.Event {
		return &status.Event{
			NormalizedName: "testonib",
			Agency:         status.AgencyEMA,
			EventType:      "approval",
			Title:          "Testonib eu",
		}
	}

	written, err := s.store.UpsertEvent(ctx, undated())
	s.Require().NoError(err)
	s.True(written)

	// An approval whose date degraded to nil must still dedup.
	written, err = s.store.UpsertEvent(ctx, undated())
	s.Require().NoError(err)
	s.False(written)

	events, err := s.store.ListEvents(ctx, "testonib", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Nil(events[0].EventDate)
}

func (s *PostgresStoreSuite) TestStats() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.full("hotdrug")))

	all := s.full("alldrug")
	all.EMA = &status.Approval{Agency: status.AgencyEMA, Status: status.StatusApproved}
	all.MFDS = &status.Approval{Agency: status.AgencyMFDS, Status: status.StatusApproved}
	s.Require().NoError(s.store.Upsert(ctx, all))

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.TotalDrugs)
	s.Equal(2, stats.ByLevel["HOT"])
	s.Equal(1, stats.ApprovedByAll)
	s.NotNil(stats.LastUpdated)
}

func (s *PostgresStoreSuite) TestRollbackLeavesNoRows() {
	ctx := context.Background()

	err := tx.RunInTx(ctx, s.postgres.DB, func(ctx context.Context) error {
		if err := s.store.Upsert(ctx, s.full("ghost")); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Require().Error(err)

	_, err = s.store.Get(ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
