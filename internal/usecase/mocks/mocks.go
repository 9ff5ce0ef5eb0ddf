package mocks

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// MockUserRepository is an in-memory UserRepository with bounded histories.
type MockUserRepository struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	history    map[string]*domain.Ring[domain.HistoryEntry]
	overdrafts map[string]*domain.Ring[domain.OverdraftEvent]
	overSeq    map[string]int64

	GetByIDTxFunc         func(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error)
	ApplyBalanceDeltaFunc func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, at time.Time) (domain.BalanceChange, error)
	AppendHistoryFunc     func(ctx context.Context, tx usecase.Transaction, userID string, entry domain.HistoryEntry) error
	AppendOverdraftFunc   func(ctx context.Context, tx usecase.Transaction, userID string, event domain.OverdraftEvent) error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:      make(map[string]*domain.User),
		history:    make(map[string]*domain.Ring[domain.HistoryEntry]),
		overdrafts: make(map[string]*domain.Ring[domain.OverdraftEvent]),
		overSeq:    make(map[string]int64),
	}
}

// Seed stores a user with the given balance.
func (m *MockUserRepository) Seed(id, phone string, balance int64) *domain.User {
	u := &domain.User{
		ID:             id,
		Phone:          phone,
		StateCode:      "KA",
		Balance:        decimal.NewNullDecimal(decimal.NewFromInt(balance)),
		OpeningBalance: decimal.NewFromInt(balance),
		CreatedAt:      time.Now().UTC(),
	}
	_ = m.Create(context.Background(), u)
	return u
}

func (m *MockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	if m.GetByIDTxFunc != nil {
		return m.GetByIDTxFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockUserRepository) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*domain.User
	for i, id := range ids {
		if i < offset || len(out) >= limit {
			continue
		}
		cp := *m.users[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockUserRepository) ApplyBalanceDelta(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, at time.Time) (domain.BalanceChange, error) {
	if m.ApplyBalanceDeltaFunc != nil {
		return m.ApplyBalanceDeltaFunc(ctx, tx, id, delta, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.BalanceChange{}, domain.ErrUserNotFound
	}
	if err := u.ValidateDelta(delta); err != nil {
		return domain.BalanceChange{}, err
	}
	prev := u.CurrentBalance()
	u.Balance = decimal.NewNullDecimal(prev.Add(delta))
	u.Version++
	u.HistorySeq++
	u.UpdatedAt = at
	return domain.BalanceChange{Previous: prev, Current: u.Balance.Decimal, Seq: u.HistorySeq}, nil
}

func (m *MockUserRepository) AppendHistory(ctx context.Context, tx usecase.Transaction, userID string, entry domain.HistoryEntry) error {
	if m.AppendHistoryFunc != nil {
		return m.AppendHistoryFunc(ctx, tx, userID, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.history[userID]
	if !ok {
		r = domain.NewRing[domain.HistoryEntry](domain.HistoryCap)
		m.history[userID] = r
	}
	r.Push(entry)
	return nil
}

func (m *MockUserRepository) ListHistory(_ context.Context, userID string) ([]domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.history[userID]; ok {
		return r.Items(), nil
	}
	return []domain.HistoryEntry{}, nil
}

func (m *MockUserRepository) AppendOverdraft(ctx context.Context, tx usecase.Transaction, userID string, event domain.OverdraftEvent) error {
	if m.AppendOverdraftFunc != nil {
		return m.AppendOverdraftFunc(ctx, tx, userID, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.overdrafts[userID]
	if !ok {
		r = domain.NewRing[domain.OverdraftEvent](domain.OverdraftCap)
		m.overdrafts[userID] = r
	}
	m.overSeq[userID]++
	event.Seq = m.overSeq[userID]
	r.Push(event)
	return nil
}

func (m *MockUserRepository) ListOverdrafts(_ context.Context, userID string) ([]domain.OverdraftEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.overdrafts[userID]; ok {
		return r.Items(), nil
	}
	return []domain.OverdraftEvent{}, nil
}

// Balance returns the stored balance of id.
func (m *MockUserRepository) Balance(id string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u.CurrentBalance()
	}
	return decimal.Zero
}

// MockTransactionRepository is an in-memory TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns []*domain.Transaction

	CreateFunc func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.RequestID != "" {
		for _, t := range m.txns {
			if t.UserID == txn.UserID && t.RequestID == txn.RequestID {
				return &domain.DuplicateRequestError{RequestID: txn.RequestID, TransactionID: t.ID}
			}
		}
	}
	cp := *txn
	m.txns = append(m.txns, &cp)
	return nil
}

// Add stores txn directly, for seeding.
func (m *MockTransactionRepository) Add(txn *domain.Transaction) {
	_ = m.Create(context.Background(), nil, txn)
}

func (m *MockTransactionRepository) GetByRequestID(_ context.Context, _ usecase.Transaction, userID, requestID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.txns {
		if t.UserID == userID && t.RequestID == requestID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Transaction, int, error) {
	all := m.filter(func(t *domain.Transaction) bool { return t.UserID == userID })
	slices.Reverse(all)
	return page(all, limit, offset), len(all), nil
}

func (m *MockTransactionRepository) ListByUserSince(_ context.Context, userID string, txnType domain.TransactionType, since time.Time) ([]*domain.Transaction, error) {
	return m.filter(func(t *domain.Transaction) bool {
		return t.UserID == userID && t.Type == txnType && !t.CreatedAt.Before(since)
	}), nil
}

func (m *MockTransactionRepository) SumByReference(_ context.Context, _ usecase.Transaction, referenceID string, txnType domain.TransactionType) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range m.filter(func(t *domain.Transaction) bool {
		return t.ReferenceID == referenceID && t.Type == txnType && t.Status == domain.TransactionStatusSuccess
	}) {
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (m *MockTransactionRepository) SumSignedByUser(_ context.Context, userID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range m.filter(func(t *domain.Transaction) bool {
		return t.UserID == userID && t.Status == domain.TransactionStatusSuccess
	}) {
		sum = sum.Add(t.SignedAmount())
	}
	return sum, nil
}

// All returns every stored transaction in insertion order.
func (m *MockTransactionRepository) All() []*domain.Transaction {
	return m.filter(func(*domain.Transaction) bool { return true })
}

func (m *MockTransactionRepository) filter(keep func(*domain.Transaction) bool) []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range m.txns {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

// MockScoreRepository is an in-memory ScoreRepository.
type MockScoreRepository struct {
	mu     sync.RWMutex
	scores []*domain.Score

	CreateFunc func(ctx context.Context, score *domain.Score) error
}

func NewMockScoreRepository() *MockScoreRepository {
	return &MockScoreRepository{}
}

func (m *MockScoreRepository) Create(ctx context.Context, score *domain.Score) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, score)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *score
	m.scores = append(m.scores, &cp)
	return nil
}

func (m *MockScoreRepository) GetLatest(_ context.Context, userID string) (*domain.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.scores) - 1; i >= 0; i-- {
		if m.scores[i].UserID == userID {
			cp := *m.scores[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrScoreNotFound
}

func (m *MockScoreRepository) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Score
	for i := len(m.scores) - 1; i >= 0 && len(out) < limit; i-- {
		if m.scores[i].UserID == userID {
			cp := *m.scores[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Count returns the number of stored snapshots.
func (m *MockScoreRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scores)
}

// MockScoreCache is an in-memory ScoreCache that ignores TTLs.
type MockScoreCache struct {
	mu     sync.RWMutex
	scores map[string]*domain.Score

	GetFunc func(ctx context.Context, userID string) (*domain.Score, error)
}

func NewMockScoreCache() *MockScoreCache {
	return &MockScoreCache{scores: make(map[string]*domain.Score)}
}

func (m *MockScoreCache) Get(ctx context.Context, userID string) (*domain.Score, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.scores[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *MockScoreCache) Set(_ context.Context, score *domain.Score, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *score
	m.scores[score.UserID] = &cp
	return nil
}

func (m *MockScoreCache) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores, userID)
	return nil
}

// MockLoanRepository is an in-memory LoanRepository.
type MockLoanRepository struct {
	mu    sync.RWMutex
	loans map[string]*domain.Loan
	order []string

	UpdateFunc func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
}

func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{loans: make(map[string]*domain.Loan)}
}

func (m *MockLoanRepository) Create(_ context.Context, _ usecase.Transaction, loan *domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *loan
	m.loans[loan.ID] = &cp
	m.order = append(m.order, loan.ID)
	return nil
}

func (m *MockLoanRepository) GetByIDForUpdate(_ context.Context, _ usecase.Transaction, id string) (*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.loans[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) GetActiveByUser(_ context.Context, _ usecase.Transaction, userID string) (*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		l := m.loans[id]
		if l.UserID == userID && l.Status.IsActive() {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, loan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[loan.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	cp := *loan
	m.loans[loan.ID] = &cp
	return nil
}

func (m *MockLoanRepository) ListByUser(_ context.Context, userID string) ([]*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Loan
	for _, id := range m.order {
		if l := m.loans[id]; l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockMerchantRepository is an in-memory MerchantRepository.
type MockMerchantRepository struct {
	mu        sync.RWMutex
	merchants map[string]*domain.Merchant
}

func NewMockMerchantRepository() *MockMerchantRepository {
	return &MockMerchantRepository{merchants: make(map[string]*domain.Merchant)}
}

func (m *MockMerchantRepository) Create(_ context.Context, _ usecase.Transaction, merchant *domain.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *merchant
	m.merchants[merchant.ID] = &cp
	return nil
}

func (m *MockMerchantRepository) GetByID(_ context.Context, _ usecase.Transaction, id string) (*domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mc, ok := m.merchants[id]; ok {
		cp := *mc
		return &cp, nil
	}
	return nil, domain.ErrMerchantNotFound
}

func (m *MockMerchantRepository) GetByPhone(_ context.Context, phone string) (*domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mc := range m.merchants {
		if mc.Phone == phone {
			cp := *mc
			return &cp, nil
		}
	}
	return nil, domain.ErrMerchantNotFound
}

func (m *MockMerchantRepository) SetVerified(_ context.Context, _ usecase.Transaction, id string, verified bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.merchants[id]
	if !ok {
		return domain.ErrMerchantNotFound
	}
	mc.Verified = verified
	mc.UpdatedAt = at
	return nil
}

func (m *MockMerchantRepository) List(_ context.Context, filter domain.MerchantFilter) ([]*domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Merchant
	for _, mc := range m.merchants {
		if filter.StateCode != "" && mc.StateCode != filter.StateCode {
			continue
		}
		if filter.Verified != nil && mc.Verified != *filter.Verified {
			continue
		}
		cp := *mc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MockEscrowRepository is an in-memory EscrowRepository.
type MockEscrowRepository struct {
	mu      sync.RWMutex
	escrows map[string]*domain.Escrow
	order   []string
}

func NewMockEscrowRepository() *MockEscrowRepository {
	return &MockEscrowRepository{escrows: make(map[string]*domain.Escrow)}
}

func (m *MockEscrowRepository) Create(_ context.Context, _ usecase.Transaction, escrow *domain.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *escrow
	m.escrows[escrow.ID] = &cp
	m.order = append(m.order, escrow.ID)
	return nil
}

func (m *MockEscrowRepository) GetByID(_ context.Context, id string) (*domain.Escrow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.escrows[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrEscrowNotFound
}

func (m *MockEscrowRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.Escrow, error) {
	return m.GetByID(ctx, id)
}

// Update applies the same status guard as the Postgres repository.
func (m *MockEscrowRepository) Update(_ context.Context, _ usecase.Transaction, escrow *domain.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.escrows[escrow.ID]
	if !ok {
		return domain.ErrEscrowNotFound
	}
	if !slices.Contains(escrow.Status.PriorStatuses(), string(stored.Status)) {
		return domain.ErrInvalidTransition
	}
	cp := *escrow
	m.escrows[escrow.ID] = &cp
	return nil
}

func (m *MockEscrowRepository) ListBySender(_ context.Context, senderID string, limit, offset int) ([]*domain.Escrow, int, error) {
	all := m.filter(func(e *domain.Escrow) bool { return e.SenderID == senderID })
	return page(all, limit, offset), len(all), nil
}

func (m *MockEscrowRepository) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*domain.Escrow, int, error) {
	all := m.filter(func(e *domain.Escrow) bool { return e.MerchantID == merchantID })
	return page(all, limit, offset), len(all), nil
}

// filter returns matches newest first.
func (m *MockEscrowRepository) filter(keep func(*domain.Escrow) bool) []*domain.Escrow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Escrow
	for i := len(m.order) - 1; i >= 0; i-- {
		if e := m.escrows[m.order[i]]; keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// MockProofRepository is an in-memory ProofRepository.
type MockProofRepository struct {
	mu     sync.RWMutex
	proofs map[string]*domain.Proof
	order  []string
}

func NewMockProofRepository() *MockProofRepository {
	return &MockProofRepository{proofs: make(map[string]*domain.Proof)}
}

func (m *MockProofRepository) Create(_ context.Context, _ usecase.Transaction, proof *domain.Proof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *proof
	m.proofs[proof.ID] = &cp
	m.order = append(m.order, proof.ID)
	return nil
}

func (m *MockProofRepository) GetByID(ctx context.Context, id string) (*domain.Proof, error) {
	return m.GetByIDForUpdate(ctx, nil, id)
}

func (m *MockProofRepository) GetByIDForUpdate(_ context.Context, _ usecase.Transaction, id string) (*domain.Proof, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.proofs[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrProofNotFound
}

func (m *MockProofRepository) Update(_ context.Context, _ usecase.Transaction, proof *domain.Proof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proofs[proof.ID]; !ok {
		return domain.ErrProofNotFound
	}
	cp := *proof
	m.proofs[proof.ID] = &cp
	return nil
}

func (m *MockProofRepository) ListByEscrow(_ context.Context, escrowID string) ([]*domain.Proof, error) {
	return m.filter(func(p *domain.Proof) bool { return p.EscrowID == escrowID }), nil
}

func (m *MockProofRepository) ListPending(_ context.Context, limit, offset int) ([]*domain.Proof, int, error) {
	all := m.filter(func(p *domain.Proof) bool { return p.Status == domain.ProofStatusPending })
	return page(all, limit, offset), len(all), nil
}

// filter returns matches oldest first.
func (m *MockProofRepository) filter(keep func(*domain.Proof) bool) []*domain.Proof {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Proof
	for _, id := range m.order {
		if p := m.proofs[id]; keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && e.FailedAt == nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Attempts < out[j].Attempts })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkFailed(_ context.Context, id, reason string, dead bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Attempts++
			e.LastError = reason
			if dead {
				e.FailedAt = &at
			}
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// EventTypes returns the types of all stored events in order.
func (m *MockOutboxRepository) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}

// Notifications returns the SMS payloads queued so far.
func (m *MockOutboxRepository) Notifications() []domain.SMSNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.SMSNotification
	for _, e := range m.events {
		if n, ok := domain.NotificationFromEvent(e); ok {
			out = append(out, n)
		}
	}
	return out
}

// MockAuditRepository is an in-memory AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) CreateTx(_ context.Context, _ usecase.Transaction, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc               func(ctx context.Context) (usecase.Transaction, error)
	BeginSequentialFunc     func(ctx context.Context) (usecase.Transaction, error)
	IsAtomicUnsupportedFunc func(err error) bool

	mu              sync.Mutex
	Begins          int
	SequentialBegin int
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	m.mu.Lock()
	m.Begins++
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{atomic: true}, nil
}

func (m *MockTransactionManager) BeginSequential(ctx context.Context) (usecase.Transaction, error) {
	m.mu.Lock()
	m.SequentialBegin++
	m.mu.Unlock()
	if m.BeginSequentialFunc != nil {
		return m.BeginSequentialFunc(ctx)
	}
	return &MockTransaction{}, nil
}

func (m *MockTransactionManager) IsAtomicUnsupported(err error) bool {
	if m.IsAtomicUnsupportedFunc != nil {
		return m.IsAtomicUnsupportedFunc(err)
	}
	return false
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	atomic    bool
	Committed bool
}

func NewMockTransaction(atomic bool) *MockTransaction {
	return &MockTransaction{atomic: atomic}
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Atomic() bool { return m.atomic }

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockScoreRefresher records refresh requests.
type MockScoreRefresher struct {
	mu    sync.Mutex
	Users []string
}

func (m *MockScoreRefresher) Refresh(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users = append(m.Users, userID)
}

// Calls returns a copy of the refreshed user ids.
func (m *MockScoreRefresher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Users)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
