package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
	"github.com/iho/sarathi/internal/usecase/mocks"
)

type LoanUseCaseTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	scores *mocks.MockScoreProvider
	f      *fixture
	uc     *usecase.LoanUseCase
}

func TestLoanUseCaseSuite(t *testing.T) {
	suite.Run(t, new(LoanUseCaseTestSuite))
}

func (s *LoanUseCaseTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.scores = mocks.NewMockScoreProvider(s.ctrl)
	s.f = newFixture()
	s.uc = usecase.NewLoanUseCase(usecase.LoanDeps{
		Coordinator:  s.f.coordinator,
		Users:        s.f.users,
		Loans:        s.f.loans,
		Transactions: s.f.txns,
		Ledger:       s.f.ledger,
		Scores:       s.scores,
		Outbox:       s.f.outbox,
		Audit:        s.f.audit,
		IDGen:        s.f.idGen,
		Refresher:    s.f.refresher,
		Logger:       zerolog.Nop(),
	})
}

func (s *LoanUseCaseTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LoanUseCaseTestSuite) withScore(score int) {
	s.scores.EXPECT().GetLatestOrRecompute(gomock.Any(), senderID).Return(&domain.Score{
		UserID: senderID,
		Score:  score,
		Band:   domain.BandForScore(score),
	}, nil)
}

func (s *LoanUseCaseTestSuite) disbursed(amount int64) *domain.Loan {
	s.withScore(700)
	decision, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(amount))
	s.Require().NoError(err)
	s.Require().True(decision.Approved)

	loan, err := s.uc.Accept(s.T().Context(), sender, decision.Loan.ID)
	s.Require().NoError(err)
	return loan
}

func (s *LoanUseCaseTestSuite) TestDecide_BandAApproved() {
	s.withScore(700)

	decision, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(5000))
	s.Require().NoError(err)

	s.True(decision.Approved)
	s.Equal(domain.BandA, decision.Band)
	s.Equal(domain.LoanStatusPreapproved, decision.Loan.Status)
	s.Require().NotNil(decision.Offer)
	s.Equal(60, decision.Offer.TermDays)
	s.Equal(domain.LoanAPR, decision.Offer.APR)
	s.True(decision.Offer.TotalDue.Equal(decimal.NewFromInt(5148)), "total due %s", decision.Offer.TotalDue)

	stored, err := s.f.loans.GetByIDForUpdate(s.T().Context(), nil, decision.Loan.ID)
	s.Require().NoError(err)
	s.Equal(domain.LoanStatusPreapproved, stored.Status)

	s.Equal([]string{domain.EventTypeLoanDecision, domain.EventTypeNotificationSMS}, s.f.outbox.EventTypes())
}

func (s *LoanUseCaseTestSuite) TestDecide_PolicyMismatchIsRejectedDecision() {
	s.withScore(640) // band B caps at 3000

	decision, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(4000))
	s.Require().NoError(err)

	s.False(decision.Approved)
	s.Nil(decision.Offer)
	s.Equal(domain.LoanStatusRejected, decision.Loan.Status)
	s.Zero(decision.Loan.APR)
	s.Zero(decision.Loan.TermDays)

	_, err = s.f.loans.GetActiveByUser(s.T().Context(), nil, senderID)
	s.ErrorIs(err, domain.ErrLoanNotFound, "a rejected loan must not block the next request")
}

func (s *LoanUseCaseTestSuite) TestDecide_BandCNeedsRemitHistory() {
	s.withScore(610)

	decision, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(1000))
	s.Require().NoError(err)
	s.False(decision.Approved)

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 1, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		s.f.txns.Add(&domain.Transaction{
			ID:        s.f.idGen.Generate(),
			UserID:    senderID,
			Type:      domain.TransactionTypeRemit,
			Amount:    decimal.NewFromInt(500),
			Status:    domain.TransactionStatusSuccess,
			CreatedAt: monthStart.AddDate(0, -i, 0),
		})
	}

	s.withScore(610)
	decision, err = s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(1000))
	s.Require().NoError(err)
	s.True(decision.Approved)
	s.Equal(30, decision.Offer.TermDays)
}

func (s *LoanUseCaseTestSuite) TestDecide_ActiveLoanBlocks() {
	s.disbursed(3000)

	_, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(1000))
	s.ErrorIs(err, domain.ErrActiveLoanExists)
	s.ErrorIs(err, domain.ErrPolicyRejected)
}

func (s *LoanUseCaseTestSuite) TestDecide_InvalidAmount() {
	_, err := s.uc.Decide(s.T().Context(), sender, decimal.Zero)
	s.ErrorIs(err, domain.ErrInvalidAmount)
}

func (s *LoanUseCaseTestSuite) TestAccept_Disburses() {
	loan := s.disbursed(3000)

	s.Equal(domain.LoanStatusDisbursed, loan.Status)
	s.NotNil(loan.ApprovedAt)
	s.NotNil(loan.DisbursedAt)
	s.True(s.f.users.Balance(senderID).Equal(decimal.NewFromInt(8000)))

	txns := s.f.txns.All()
	s.Require().Len(txns, 1)
	s.Equal(domain.TransactionTypeLoanDisbursal, txns[0].Type)
	s.Equal(loan.ID, txns[0].ReferenceID)
	s.Contains(s.f.refresher.Calls(), senderID)
}

func (s *LoanUseCaseTestSuite) TestAccept_OtherUsersLoanIsHidden() {
	s.withScore(700)
	decision, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(1000))
	s.Require().NoError(err)

	_, err = s.uc.Accept(s.T().Context(), domain.Actor{UserID: "intruder"}, decision.Loan.ID)
	s.ErrorIs(err, domain.ErrLoanNotFound)
}

func (s *LoanUseCaseTestSuite) TestAccept_Twice() {
	loan := s.disbursed(1000)

	_, err := s.uc.Accept(s.T().Context(), sender, loan.ID)
	s.ErrorIs(err, domain.ErrInvalidTransition)
	s.True(s.f.users.Balance(senderID).Equal(decimal.NewFromInt(6000)), "second accept must not credit again")
}

func (s *LoanUseCaseTestSuite) TestAccept_SecondOfferBlockedByActiveLoan() {
	s.withScore(700)
	first, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(1000))
	s.Require().NoError(err)
	s.withScore(700)
	second, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(2000))
	s.Require().NoError(err)
	s.Require().True(first.Approved)
	s.Require().True(second.Approved)

	_, err = s.uc.Accept(s.T().Context(), sender, first.Loan.ID)
	s.Require().NoError(err)

	_, err = s.uc.Accept(s.T().Context(), sender, second.Loan.ID)
	s.ErrorIs(err, domain.ErrActiveLoanExists)

	stored, err := s.f.loans.GetByIDForUpdate(s.T().Context(), nil, second.Loan.ID)
	s.Require().NoError(err)
	s.Equal(domain.LoanStatusPreapproved, stored.Status)
	s.True(s.f.users.Balance(senderID).Equal(decimal.NewFromInt(6000)), "only the first principal is credited, got %s", s.f.users.Balance(senderID))

	active, err := s.f.loans.GetActiveByUser(s.T().Context(), nil, senderID)
	s.Require().NoError(err)
	s.Equal(first.Loan.ID, active.ID)
}

func (s *LoanUseCaseTestSuite) TestRepay_PartialThenFull() {
	loan := s.disbursed(3000) // total due 3045

	res, err := s.uc.Repay(s.T().Context(), sender, usecase.RepayInput{LoanID: loan.ID, Amount: decimal.NewFromInt(1000), RequestID: "r-1"})
	s.Require().NoError(err)
	s.True(res.Remaining.Equal(decimal.NewFromInt(2045)), "remaining %s", res.Remaining)
	s.Equal(domain.LoanStatusDisbursed, res.Loan.Status)

	active, err := s.uc.GetActiveLoan(s.T().Context(), sender)
	s.Require().NoError(err)
	s.True(active.Repaid.Equal(decimal.NewFromInt(1000)))
	s.True(active.TotalDue.Equal(decimal.NewFromInt(3045)))
	s.NotNil(active.DueDate)

	_, err = s.uc.Repay(s.T().Context(), sender, usecase.RepayInput{LoanID: loan.ID, Amount: decimal.NewFromInt(2046)})
	s.ErrorIs(err, domain.ErrRepaymentExceedsRemaining)

	res, err = s.uc.Repay(s.T().Context(), sender, usecase.RepayInput{LoanID: loan.ID, Amount: decimal.NewFromInt(2045)})
	s.Require().NoError(err)
	s.True(res.Remaining.IsZero())
	s.Equal(domain.LoanStatusRepaid, res.Loan.Status)
	s.NotNil(res.Loan.RepaidAt)
	s.True(s.f.users.Balance(senderID).Equal(decimal.NewFromInt(8000 - 3045)))

	types := s.f.outbox.EventTypes()
	s.Contains(types, domain.EventTypeLoanRepayment)
	s.Contains(types, domain.EventTypeLoanRepaid)

	_, err = s.uc.GetActiveLoan(s.T().Context(), sender)
	s.ErrorIs(err, domain.ErrLoanNotFound)
}

func (s *LoanUseCaseTestSuite) TestRepay_DuplicateRequest() {
	loan := s.disbursed(1000)

	in := usecase.RepayInput{LoanID: loan.ID, Amount: decimal.NewFromInt(100), RequestID: "r-1"}
	_, err := s.uc.Repay(s.T().Context(), sender, in)
	s.Require().NoError(err)

	_, err = s.uc.Repay(s.T().Context(), sender, in)
	var dup *domain.DuplicateRequestError
	s.Require().True(errors.As(err, &dup))
}

func (s *LoanUseCaseTestSuite) TestRepay_NotDisbursed() {
	s.withScore(700)
	decision, err := s.uc.Decide(s.T().Context(), sender, decimal.NewFromInt(1000))
	s.Require().NoError(err)

	_, err = s.uc.Repay(s.T().Context(), sender, usecase.RepayInput{LoanID: decision.Loan.ID, Amount: decimal.NewFromInt(10)})
	s.ErrorIs(err, domain.ErrInvalidTransition)
}

func (s *LoanUseCaseTestSuite) TestRepay_InsufficientFunds() {
	loan := s.disbursed(5000) // balance 10000, due 5148

	_, err := s.f.ledger.Remit(s.T().Context(), sender, usecase.RemitInput{Amount: decimal.NewFromInt(9000), Counterparty: "+919811122233"})
	s.Require().NoError(err)

	_, err = s.uc.Repay(s.T().Context(), sender, usecase.RepayInput{LoanID: loan.ID, Amount: decimal.NewFromInt(5148)})
	s.ErrorIs(err, domain.ErrInsufficientFunds)

	overdrafts, _ := s.f.users.ListOverdrafts(context.Background(), senderID)
	s.Len(overdrafts, 1)
}

func (s *LoanUseCaseTestSuite) TestMarkDefaulted() {
	loan := s.disbursed(1000)

	_, err := s.uc.MarkDefaulted(s.T().Context(), sender, loan.ID)
	s.ErrorIs(err, domain.ErrAdminRequired)

	defaulted, err := s.uc.MarkDefaulted(s.T().Context(), admin, loan.ID)
	s.Require().NoError(err)
	s.Equal(domain.LoanStatusDefaulted, defaulted.Status)

	logs, err := s.f.audit.List(s.T().Context(), domain.AuditFilter{Action: string(domain.AuditActionLoanDefault)})
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(adminID, logs[0].UserID)

	sms := s.f.outbox.Notifications()
	s.Equal(senderPhone, sms[len(sms)-1].Recipient)
}

func (s *LoanUseCaseTestSuite) TestCalculateEMI() {
	s.True(s.uc.CalculateEMI(decimal.NewFromInt(1000), 18, 30).Equal(decimal.NewFromInt(1015)))
}
