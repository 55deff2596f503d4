package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CompensationTestSuite struct {
	suite.Suite
	mockLedger    *MockLedgerPoster
	mockBatchRepo *MockBatchRepository
	compensator   portssvc.BatchCompensator
	ctx           context.Context
}

func (s *CompensationTestSuite) SetupTest() {
	s.mockLedger = new(MockLedgerPoster)
	s.mockBatchRepo = new(MockBatchRepository)
	s.compensator = services.NewCompensationHandler(s.mockLedger, s.mockBatchRepo)
	s.ctx = context.Background()
}

func postedItems(journalIDs ...string) []domain.BatchItem {
	items := make([]domain.BatchItem, len(journalIDs))
	for i := range journalIDs {
		id := journalIDs[i]
		items[i] = domain.BatchItem{
			ItemID:    "item-" + id,
			BatchID:   "batch-1",
			Position:  i,
			Status:    domain.ItemPosted,
			JournalID: &id,
		}
	}
	return items
}

func (s *CompensationTestSuite) TestReversesNewestFirst() {
	items := postedItems("j0", "j1", "j2")

	var reversed []string
	s.mockLedger.On("ReverseJournal", s.ctx, mock.AnythingOfType("string"), "tester").
		Run(func(args mock.Arguments) { reversed = append(reversed, args.String(1)) }).
		Return("rev", nil).Times(3)

	var updated []domain.BatchItem
	s.mockBatchRepo.On("UpdateBatchItem", s.ctx, mock.AnythingOfType("domain.BatchItem")).
		Run(func(args mock.Arguments) { updated = append(updated, args.Get(1).(domain.BatchItem)) }).
		Return(nil).Times(3)

	incomplete := s.compensator.CompensatePostedItems(s.ctx, items, "tester")

	s.False(incomplete)
	s.Equal([]string{"j2", "j1", "j0"}, reversed)

	s.Require().Len(updated, 3)
	for _, item := range updated {
		s.Equal(domain.ItemReversed, item.Status)
		s.Require().NotNil(item.ReversalJournalID)
		s.Equal("rev", *item.ReversalJournalID)
	}
}

func (s *CompensationTestSuite) TestSkipsAlreadyReversedItems() {
	items := postedItems("j0", "j1")
	revID := "rev-old"
	items[1].Status = domain.ItemReversed
	items[1].ReversalJournalID = &revID

	s.mockLedger.On("ReverseJournal", s.ctx, "j0", "tester").Return("rev-new", nil).Once()
	s.mockBatchRepo.On("UpdateBatchItem", s.ctx, mock.Anything).Return(nil).Once()

	incomplete := s.compensator.CompensatePostedItems(s.ctx, items, "tester")

	s.False(incomplete)
	s.mockLedger.AssertNumberOfCalls(s.T(), "ReverseJournal", 1)
}

func (s *CompensationTestSuite) TestEmptyPrefixIsNoOp() {
	incomplete := s.compensator.CompensatePostedItems(s.ctx, nil, "tester")

	s.False(incomplete)
	s.mockLedger.AssertNotCalled(s.T(), "ReverseJournal", mock.Anything, mock.Anything, mock.Anything)
}

func (s *CompensationTestSuite) TestReversalFailureStopsAndFlags() {
	items := postedItems("j0", "j1")

	// Newest item's reversal fails: iteration must stop before touching j0.
	s.mockLedger.On("ReverseJournal", s.ctx, "j1", "tester").Return("", errors.New("db down")).Once()

	var failedItem domain.BatchItem
	s.mockBatchRepo.On("UpdateBatchItem", s.ctx, mock.AnythingOfType("domain.BatchItem")).
		Run(func(args mock.Arguments) { failedItem = args.Get(1).(domain.BatchItem) }).
		Return(nil).Once()

	incomplete := s.compensator.CompensatePostedItems(s.ctx, items, "tester")

	s.True(incomplete)
	s.mockLedger.AssertNumberOfCalls(s.T(), "ReverseJournal", 1)
	s.Contains(failedItem.FailureReason, "compensation failed")
}

func (s *CompensationTestSuite) TestItemWithoutJournalFlags() {
	items := []domain.BatchItem{{ItemID: "item-x", Status: domain.ItemPosted, JournalID: nil}}

	incomplete := s.compensator.CompensatePostedItems(s.ctx, items, "tester")

	s.True(incomplete)
	s.mockLedger.AssertNotCalled(s.T(), "ReverseJournal", mock.Anything, mock.Anything, mock.Anything)
}

func (s *CompensationTestSuite) TestUpdateFailureAfterReversalFlags() {
	items := postedItems("j0")

	s.mockLedger.On("ReverseJournal", s.ctx, "j0", "tester").Return("rev", nil).Once()
	s.mockBatchRepo.On("UpdateBatchItem", s.ctx, mock.Anything).Return(errors.New("db down")).Once()

	incomplete := s.compensator.CompensatePostedItems(s.ctx, items, "tester")

	s.True(incomplete)
}

func TestCompensationTestSuite(t *testing.T) {
	suite.Run(t, new(CompensationTestSuite))
}
