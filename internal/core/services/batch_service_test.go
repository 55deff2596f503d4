package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/apperrors"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type BatchServiceTestSuite struct {
	suite.Suite
	mockBatchRepo   *MockBatchRepository
	mockLedger      *MockLedgerPoster
	mockCompensator *MockCompensator
	service         portssvc.BatchSvcFacade
	ctx             context.Context
}

func (s *BatchServiceTestSuite) SetupTest() {
	s.mockBatchRepo = new(MockBatchRepository)
	s.mockLedger = new(MockLedgerPoster)
	s.mockCompensator = new(MockCompensator)
	// Synchronous dispatch so the background run completes before ProcessBatch
	// returns, making assertions deterministic.
	s.service = services.NewBatchService(s.mockBatchRepo, s.mockLedger, s.mockCompensator, services.BatchServiceConfig{
		MaxPostAttempts: 3,
		RetryBackoff:    time.Millisecond,
		Dispatch:        func(f func()) { f() },
	})
	s.ctx = context.Background()
}

func balancedEntryRequest(amount int64) dto.BatchEntryRequest {
	return dto.BatchEntryRequest{
		Date:        time.Now().UTC(),
		Description: "test entry",
		Lines: []dto.BatchEntryLineRequest{
			{AccountID: "acc-cash", Debit: decimal.NewFromInt(amount)},
			{AccountID: "acc-revenue", Credit: decimal.NewFromInt(amount)},
		},
	}
}

// processingBatch builds a PROCESSING batch with n PENDING items.
func processingBatch(n int) *domain.Batch {
	items := make([]domain.BatchItem, n)
	for i := range items {
		items[i] = domain.BatchItem{
			ItemID:   "item-" + string(rune('a'+i)),
			BatchID:  "batch-1",
			Position: i,
			Status:   domain.ItemPending,
			Entry:    balancedEntryRequest(int64(100 * (i + 1))).ToJournalEntry(),
		}
	}
	return &domain.Batch{
		BatchID:     "batch-1",
		BatchNumber: "JB-20260828-0001",
		Status:      domain.BatchProcessing,
		ItemCount:   n,
		Items:       items,
	}
}

func (s *BatchServiceTestSuite) TestCreateBatchSuccess() {
	req := dto.CreateBatchRequest{
		Description: "month end",
		Entries:     []dto.BatchEntryRequest{balancedEntryRequest(100), balancedEntryRequest(200)},
	}

	s.mockBatchRepo.On("NextBatchNumber", s.ctx, mock.Anything).Return("JB-20260828-0001", nil).Once()

	var saved domain.Batch
	s.mockBatchRepo.On("SaveBatch", s.ctx, mock.AnythingOfType("domain.Batch")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.Batch) }).
		Return(nil).Once()

	batch, err := s.service.CreateBatch(s.ctx, req, "tester")

	s.Require().NoError(err)
	s.Equal(domain.BatchPending, batch.Status)
	s.Equal("JB-20260828-0001", batch.BatchNumber)
	s.Equal(2, batch.ItemCount)

	s.Require().Len(saved.Items, 2)
	for i, item := range saved.Items {
		s.Equal(i, item.Position)
		s.Equal(domain.ItemPending, item.Status)
		s.Equal(saved.BatchID, item.BatchID)
	}
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestCreateBatchRejectsUnbalancedEntry() {
	unbalanced := balancedEntryRequest(100)
	unbalanced.Lines[1].Credit = decimal.NewFromInt(50)
	req := dto.CreateBatchRequest{
		Entries: []dto.BatchEntryRequest{balancedEntryRequest(100), unbalanced},
	}

	_, err := s.service.CreateBatch(s.ctx, req, "tester")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Contains(err.Error(), "entry 1")
	// Nothing is persisted when admission fails.
	s.mockBatchRepo.AssertNotCalled(s.T(), "NextBatchNumber", mock.Anything, mock.Anything)
	s.mockBatchRepo.AssertNotCalled(s.T(), "SaveBatch", mock.Anything, mock.Anything)
}

func (s *BatchServiceTestSuite) TestCreateBatchEmpty() {
	_, err := s.service.CreateBatch(s.ctx, dto.CreateBatchRequest{}, "tester")

	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *BatchServiceTestSuite) TestProcessBatchApprovesWhenAllItemsPost() {
	batch := processingBatch(2)

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("journal-1", nil).Once()
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("journal-2", nil).Once()

	var postedItems []domain.BatchItem
	s.mockBatchRepo.On("UpdateBatchItem", mock.Anything, mock.AnythingOfType("domain.BatchItem")).
		Run(func(args mock.Arguments) { postedItems = append(postedItems, args.Get(1).(domain.BatchItem)) }).
		Return(nil).Times(2)
	s.mockBatchRepo.On("FinalizeBatch", mock.Anything, "batch-1", domain.BatchApproved, (*string)(nil), false, "tester", mock.Anything).Return(nil).Once()

	got, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.Equal(domain.BatchProcessing, got.Status)

	s.Require().Len(postedItems, 2)
	s.Equal(domain.ItemPosted, postedItems[0].Status)
	s.Require().NotNil(postedItems[0].JournalID)
	s.Equal("journal-1", *postedItems[0].JournalID)
	s.Equal("journal-2", *postedItems[1].JournalID)

	s.mockBatchRepo.AssertExpectations(s.T())
	s.mockCompensator.AssertNotCalled(s.T(), "CompensatePostedItems", mock.Anything, mock.Anything, mock.Anything)
}

func (s *BatchServiceTestSuite) TestProcessBatchConflictWhenAlreadyClaimed() {
	claimErr := errors.New("batch is PROCESSING")
	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).
		Return(errors.Join(apperrors.ErrConflict, claimErr)).Once()

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.ErrorIs(err, apperrors.ErrConflict)
	s.mockBatchRepo.AssertNotCalled(s.T(), "FindBatchByID", mock.Anything, mock.Anything)
}

func (s *BatchServiceTestSuite) TestProcessBatchNotFound() {
	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "missing", "tester", mock.Anything).Return(apperrors.ErrNotFound).Once()

	_, err := s.service.ProcessBatch(s.ctx, "missing", "tester")

	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *BatchServiceTestSuite) TestProcessBatchFailureCompensatesPostedPrefix() {
	batch := processingBatch(3)

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)

	// First item posts; second fails validation, which is never retried. The
	// third item must never be attempted.
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("journal-1", nil).Once()
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").
		Return("", errors.Join(apperrors.ErrValidation, errors.New("account acc-revenue is inactive"))).Once()

	var updatedItems []domain.BatchItem
	s.mockBatchRepo.On("UpdateBatchItem", mock.Anything, mock.AnythingOfType("domain.BatchItem")).
		Run(func(args mock.Arguments) { updatedItems = append(updatedItems, args.Get(1).(domain.BatchItem)) }).
		Return(nil)

	s.mockCompensator.On("CompensatePostedItems", mock.Anything, mock.MatchedBy(func(posted []domain.BatchItem) bool {
		return len(posted) == 1 && posted[0].Position == 0
	}), "tester").Return(false).Once()

	var rejectionReason *string
	s.mockBatchRepo.On("FinalizeBatch", mock.Anything, "batch-1", domain.BatchRejected, mock.Anything, false, "tester", mock.Anything).
		Run(func(args mock.Arguments) { rejectionReason = args.Get(3).(*string) }).
		Return(nil).Once()

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.mockLedger.AssertNumberOfCalls(s.T(), "PostEntry", 2)

	// Posted item recorded, then failed item recorded.
	s.Require().Len(updatedItems, 2)
	s.Equal(domain.ItemPosted, updatedItems[0].Status)
	s.Equal(domain.ItemFailed, updatedItems[1].Status)
	s.NotEmpty(updatedItems[1].FailureReason)

	s.Require().NotNil(rejectionReason)
	s.Contains(*rejectionReason, "entry 1 failed")

	s.mockCompensator.AssertExpectations(s.T())
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestProcessBatchRetriesTransientFailure() {
	batch := processingBatch(1)

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)

	transient := errors.New("connection reset")
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("", transient).Twice()
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("journal-1", nil).Once()

	s.mockBatchRepo.On("UpdateBatchItem", mock.Anything, mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FinalizeBatch", mock.Anything, "batch-1", domain.BatchApproved, (*string)(nil), false, "tester", mock.Anything).Return(nil).Once()

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.mockLedger.AssertNumberOfCalls(s.T(), "PostEntry", 3)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestProcessBatchExhaustsRetriesThenRejects() {
	batch := processingBatch(1)

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("", errors.New("connection reset")).Times(3)
	s.mockBatchRepo.On("UpdateBatchItem", mock.Anything, mock.Anything).Return(nil)
	s.mockCompensator.On("CompensatePostedItems", mock.Anything, mock.MatchedBy(func(posted []domain.BatchItem) bool {
		return len(posted) == 0
	}), "tester").Return(false).Once()
	s.mockBatchRepo.On("FinalizeBatch", mock.Anything, "batch-1", domain.BatchRejected, mock.Anything, false, "tester", mock.Anything).Return(nil).Once()

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.mockLedger.AssertNumberOfCalls(s.T(), "PostEntry", 3)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestProcessBatchFlagsIncompleteCompensation() {
	batch := processingBatch(2)

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("journal-1", nil).Once()
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("", errors.Join(apperrors.ErrValidation, errors.New("bad entry"))).Once()
	s.mockBatchRepo.On("UpdateBatchItem", mock.Anything, mock.Anything).Return(nil)
	s.mockCompensator.On("CompensatePostedItems", mock.Anything, mock.Anything, "tester").Return(true).Once()
	s.mockBatchRepo.On("FinalizeBatch", mock.Anything, "batch-1", domain.BatchRejected, mock.Anything, true, "tester", mock.Anything).Return(nil).Once()

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestProcessBatchResumesAlreadyPostedItems() {
	batch := processingBatch(2)
	journalID := "journal-1"
	batch.Items[0].Status = domain.ItemPosted
	batch.Items[0].JournalID = &journalID

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)
	// Only the second item still needs posting.
	s.mockLedger.On("PostEntry", mock.Anything, mock.Anything, "tester").Return("journal-2", nil).Once()
	s.mockBatchRepo.On("UpdateBatchItem", mock.Anything, mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FinalizeBatch", mock.Anything, "batch-1", domain.BatchApproved, (*string)(nil), false, "tester", mock.Anything).Return(nil).Once()

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.mockLedger.AssertNumberOfCalls(s.T(), "PostEntry", 1)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestRunSkippedWhenBatchAlreadyFinalized() {
	batch := processingBatch(1)
	batch.Status = domain.BatchApproved

	s.mockBatchRepo.On("MarkBatchProcessing", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", mock.Anything, "batch-1").Return(batch, nil)

	_, err := s.service.ProcessBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.mockLedger.AssertNotCalled(s.T(), "PostEntry", mock.Anything, mock.Anything, mock.Anything)
	s.mockBatchRepo.AssertNotCalled(s.T(), "FinalizeBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *BatchServiceTestSuite) TestCancelBatchSuccess() {
	cancelled := &domain.Batch{BatchID: "batch-1", Status: domain.BatchCancelled}

	s.mockBatchRepo.On("CancelBatch", s.ctx, "batch-1", "tester", mock.Anything).Return(nil).Once()
	s.mockBatchRepo.On("FindBatchByID", s.ctx, "batch-1").Return(cancelled, nil).Once()

	got, err := s.service.CancelBatch(s.ctx, "batch-1", "tester")

	s.Require().NoError(err)
	s.Equal(domain.BatchCancelled, got.Status)
}

func (s *BatchServiceTestSuite) TestCancelBatchConflictOnceProcessing() {
	s.mockBatchRepo.On("CancelBatch", s.ctx, "batch-1", "tester", mock.Anything).
		Return(errors.Join(apperrors.ErrConflict, errors.New("batch is PROCESSING"))).Once()

	_, err := s.service.CancelBatch(s.ctx, "batch-1", "tester")

	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *BatchServiceTestSuite) TestListBatchesDefaultLimit() {
	s.mockBatchRepo.On("ListBatches", s.ctx, 20, (*string)(nil)).Return([]domain.Batch{}, nil, nil).Once()

	_, _, err := s.service.ListBatches(s.ctx, 0, nil)

	s.NoError(err)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func TestBatchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BatchServiceTestSuite))
}
