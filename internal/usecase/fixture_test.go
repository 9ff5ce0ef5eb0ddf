package usecase_test

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
	"github.com/iho/sarathi/internal/usecase/mocks"
)

const (
	senderID      = "user-1"
	senderPhone   = "+919876543210"
	merchantPhone = "+919812345678"
	adminID       = "admin-1"
)

var (
	sender = domain.Actor{UserID: senderID, Phone: senderPhone}
	admin  = domain.Actor{UserID: adminID, Phone: "+919800000000", IsAdmin: true}
)

type fixture struct {
	users     *mocks.MockUserRepository
	txns      *mocks.MockTransactionRepository
	scores    *mocks.MockScoreRepository
	cache     *mocks.MockScoreCache
	loans     *mocks.MockLoanRepository
	merchants *mocks.MockMerchantRepository
	escrows   *mocks.MockEscrowRepository
	proofs    *mocks.MockProofRepository
	outbox    *mocks.MockOutboxRepository
	audit     *mocks.MockAuditRepository
	txManager *mocks.MockTransactionManager
	idGen     *mocks.MockIDGenerator
	refresher *mocks.MockScoreRefresher

	coordinator *usecase.Coordinator
	ledger      *usecase.LedgerUseCase
	score       *usecase.ScoreUseCase
	loan        *usecase.LoanUseCase
	escrow      *usecase.EscrowUseCase
	merchant    *usecase.MerchantUseCase
}

func newFixture() *fixture {
	f := &fixture{
		users:     mocks.NewMockUserRepository(),
		txns:      mocks.NewMockTransactionRepository(),
		scores:    mocks.NewMockScoreRepository(),
		cache:     mocks.NewMockScoreCache(),
		loans:     mocks.NewMockLoanRepository(),
		merchants: mocks.NewMockMerchantRepository(),
		escrows:   mocks.NewMockEscrowRepository(),
		proofs:    mocks.NewMockProofRepository(),
		outbox:    mocks.NewMockOutboxRepository(),
		audit:     mocks.NewMockAuditRepository(),
		txManager: mocks.NewMockTransactionManager(),
		idGen:     mocks.NewMockIDGenerator(),
		refresher: &mocks.MockScoreRefresher{},
	}

	logger := zerolog.Nop()
	f.coordinator = usecase.NewCoordinator(usecase.CoordinatorConfig{
		TxManager: f.txManager,
		Logger:    logger,
	})
	f.ledger = usecase.NewLedgerUseCase(usecase.LedgerDeps{
		Coordinator:  f.coordinator,
		Users:        f.users,
		Transactions: f.txns,
		Outbox:       f.outbox,
		IDGen:        f.idGen,
		Refresher:    f.refresher,
		Region:       "IN",
		Logger:       logger,
	})
	f.score = usecase.NewScoreUseCase(usecase.ScoreDeps{
		Users:        f.users,
		Transactions: f.txns,
		Loans:        f.loans,
		Scores:       f.scores,
		Cache:        f.cache,
		IDGen:        f.idGen,
		TTL:          24 * time.Hour,
		Logger:       logger,
	})
	f.loan = usecase.NewLoanUseCase(usecase.LoanDeps{
		Coordinator:  f.coordinator,
		Users:        f.users,
		Loans:        f.loans,
		Transactions: f.txns,
		Ledger:       f.ledger,
		Scores:       f.score,
		Outbox:       f.outbox,
		Audit:        f.audit,
		IDGen:        f.idGen,
		Refresher:    f.refresher,
		Logger:       logger,
	})
	f.escrow = usecase.NewEscrowUseCase(usecase.EscrowDeps{
		Coordinator:  f.coordinator,
		Users:        f.users,
		Merchants:    f.merchants,
		Escrows:      f.escrows,
		Proofs:       f.proofs,
		Transactions: f.txns,
		Ledger:       f.ledger,
		Outbox:       f.outbox,
		Audit:        f.audit,
		IDGen:        f.idGen,
		Refresher:    f.refresher,
		Logger:       logger,
	})
	f.merchant = usecase.NewMerchantUseCase(f.coordinator, f.merchants, f.outbox, f.audit, f.idGen, "IN", nil)

	f.users.Seed(senderID, senderPhone, 5000)
	f.users.Seed(adminID, admin.Phone, 0)

	return f
}
