package services_test

import (
	"context"
	"testing"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/apperrors"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo *MockAccountRepository
	service  portssvc.AccountSvcFacade
	ctx      context.Context
}

func (s *AccountServiceTestSuite) SetupTest() {
	s.mockRepo = new(MockAccountRepository)
	s.service = services.NewAccountService(s.mockRepo)
	s.ctx = context.Background()
}

func (s *AccountServiceTestSuite) TestCreateAccountSuccess() {
	req := dto.CreateAccountRequest{
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
	}

	var saved domain.Account
	s.mockRepo.On("SaveAccount", s.ctx, mock.AnythingOfType("domain.Account")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.Account) }).
		Return(nil).Once()

	account, err := s.service.CreateAccount(s.ctx, req, "tester")

	s.Require().NoError(err)
	s.NotEmpty(account.AccountID)
	s.True(account.IsActive)
	s.True(account.Balance.IsZero(), "new accounts start at zero balance")
	s.Equal("tester", saved.CreatedBy)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *AccountServiceTestSuite) TestCreateAccountUnknownType() {
	req := dto.CreateAccountRequest{
		Name:         "Bogus",
		AccountType:  domain.AccountType("INCOME"),
		CurrencyCode: "USD",
	}

	_, err := s.service.CreateAccount(s.ctx, req, "tester")

	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockRepo.AssertNotCalled(s.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (s *AccountServiceTestSuite) TestGetAccountByIDsAllMustResolve() {
	found := map[string]domain.Account{
		"acc-1": {AccountID: "acc-1"},
	}
	s.mockRepo.On("FindAccountsByIDs", s.ctx, []string{"acc-1", "acc-2"}).Return(found, nil).Once()

	_, err := s.service.GetAccountByIDs(s.ctx, []string{"acc-1", "acc-2"})

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Contains(err.Error(), "acc-2")
}

func (s *AccountServiceTestSuite) TestListAccountsDefaultLimit() {
	s.mockRepo.On("ListAccounts", s.ctx, 20, 0).Return([]domain.Account{}, nil).Once()

	_, err := s.service.ListAccounts(s.ctx, 0, 0)

	s.NoError(err)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *AccountServiceTestSuite) TestDeactivateAccountNotFound() {
	s.mockRepo.On("DeactivateAccount", s.ctx, "missing", "tester", mock.Anything).Return(apperrors.ErrNotFound).Once()

	err := s.service.DeactivateAccount(s.ctx, "missing", "tester")

	s.ErrorIs(err, apperrors.ErrNotFound)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
