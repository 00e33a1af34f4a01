package changelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
}

func (s *MemoryStoreSuite) seed() {
	ctx := context.Background()
	for _, e := range []*Entry{
		New("testonib", TypeNewDrug, "inn", "", "Testonib", "run-1"),
		New("testonib", TypeScoreChange, "global_score", "50", "65", "run-2"),
		New("othermab", TypeNewDrug, "inn", "", "Othermab", "run-2"),
	} {
		s.Require().NoError(s.store.Append(ctx, e))
	}
}

func (s *MemoryStoreSuite) TestAppendAssignsDistinctIDs() {
	s.seed()
	entries, err := s.store.ListRecent(context.Background(), 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	seen := map[string]bool{}
	for _, e := range entries {
		s.False(seen[e.ID.String()], "duplicate id %s", e.ID)
		seen[e.ID.String()] = true
	}
}

func (s *MemoryStoreSuite) TestListRecentNewestFirst() {
	s.seed()
	entries, err := s.store.ListRecent(context.Background(), 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("othermab", entries[0].NormalizedName)
	s.Equal(TypeScoreChange, entries[1].ChangeType)
}

func (s *MemoryStoreSuite) TestListByDrug() {
	s.seed()
	entries, err := s.store.ListByDrug(context.Background(), "testonib", 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(TypeScoreChange, entries[0].ChangeType)
	s.Equal(TypeNewDrug, entries[1].ChangeType)
}

func (s *MemoryStoreSuite) TestListByRunOldestFirst() {
	s.seed()
	entries, err := s.store.ListByRun(context.Background(), "run-2")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("testonib", entries[0].NormalizedName)
	s.Equal("othermab", entries[1].NormalizedName)
}

func (s *MemoryStoreSuite) TestAppendCopiesEntry() {
	ctx := context.Background()
	e := New("testonib", TypeNewDrug, "inn", "", "Testonib", "run-1")
	s.Require().NoError(s.store.Append(ctx, e))

	e.NewValue = "mutated"

	entries, err := s.store.ListRecent(ctx, 1)
	s.Require().NoError(err)
	s.Equal("Testonib", entries[0].NewValue)
}
