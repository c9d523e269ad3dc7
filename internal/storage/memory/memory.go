package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while allowing us to plug in a real DB later.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// txKey tracks ordering for transactions per user: sorted asc by (CreatedAt, ID)
type txKey struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// reportKey identifies the unique (user, report type, generated date) row.
type reportKey struct {
	UserID uuid.UUID
	Type   finance.PeriodKind
	Date   string // yyyy-mm-dd
}

// Store is an in-memory implementation of the repository+writer interfaces used
// across the services and the API. It is guarded by an RWMutex; holding the
// write lock across ApplyTransaction's read-compute-write is what serializes
// concurrent mutations of the same account.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]finance.User
	accounts map[uuid.UUID]finance.Account
	// account numbers already taken, for the uniqueness rule
	accountNumbers map[string]struct{}
	txs            map[uuid.UUID]*finance.Transaction
	// Per-user sorted index of transactions for ordered scans and window queries
	txKeysByUser map[uuid.UUID][]txKey
	reports      map[reportKey]finance.SpendingReport
	sentiments   map[uuid.UUID]finance.SentimentAnalysis
	// Idempotency: userID -> key -> transactionID
	txIdem map[uuid.UUID]map[string]uuid.UUID
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:          make(map[uuid.UUID]finance.User),
		accounts:       make(map[uuid.UUID]finance.Account),
		accountNumbers: make(map[string]struct{}),
		txs:            make(map[uuid.UUID]*finance.Transaction),
		txKeysByUser:   make(map[uuid.UUID][]txKey),
		reports:        make(map[reportKey]finance.SpendingReport),
		sentiments:     make(map[uuid.UUID]finance.SentimentAnalysis),
		txIdem:         make(map[uuid.UUID]map[string]uuid.UUID),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u finance.User) { s.mu.Lock(); s.users[u.ID] = u; s.mu.Unlock() }
func (s *Store) SeedAccount(a finance.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.accountNumbers[a.AccountNumber] = struct{}{}
	s.mu.Unlock()
}
func (s *Store) Reset() {
	s.mu.Lock()
	s.users = map[uuid.UUID]finance.User{}
	s.accounts = map[uuid.UUID]finance.Account{}
	s.accountNumbers = map[string]struct{}{}
	s.txs = map[uuid.UUID]*finance.Transaction{}
	s.txKeysByUser = map[uuid.UUID][]txKey{}
	s.reports = map[reportKey]finance.SpendingReport{}
	s.sentiments = map[uuid.UUID]finance.SentimentAnalysis{}
	s.txIdem = map[uuid.UUID]map[string]uuid.UUID{}
	s.mu.Unlock()
}

// --- Users ---

// ListActiveUsers returns all active users, for report fan-out.
func (s *Store) ListActiveUsers(_ context.Context) ([]finance.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Active {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// UserExists reports whether the user is known to the store.
func (s *Store) UserExists(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

// --- Accounts ---

// CreateAccount persists a new account, enforcing account-number uniqueness.
func (s *Store) CreateAccount(_ context.Context, a finance.Account) (finance.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accountNumbers[a.AccountNumber]; taken {
		return finance.Account{}, errs.ErrConflict
	}
	s.accounts[a.ID] = a
	s.accountNumbers[a.AccountNumber] = struct{}{}
	return a, nil
}

// ListAccounts returns all accounts for a user.
func (s *Store) ListAccounts(_ context.Context, userID uuid.UUID) ([]finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

// GetAccount returns a user's account by ID. Accounts owned by other users
// report as not found.
func (s *Store) GetAccount(_ context.Context, userID, accountID uuid.UUID) (finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return finance.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// --- Transactions ---

// ApplyTransaction applies the draft to its account and records the resulting
// transaction, atomically. The write lock is held for the whole
// read-compute-write so two concurrent withdrawals cannot both observe the
// same starting balance.
func (s *Store) ApplyTransaction(_ context.Context, userID uuid.UUID, draft finance.Transaction) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[draft.AccountID]
	if !ok || acc.UserID != userID {
		return finance.Transaction{}, errs.ErrNotFound
	}
	next, err := finance.Apply(acc.Balance, draft.Type, draft.Amount)
	if err != nil {
		return finance.Transaction{}, err
	}
	acc.Balance = next
	s.accounts[acc.ID] = acc

	tx := draft
	tx.BalanceAfter = next
	s.txs[tx.ID] = &tx
	s.insertTxIndexLocked(userID, txKey{CreatedAt: tx.CreatedAt, ID: tx.ID})
	return tx, nil
}

// ListTransactions returns all transactions across a user's accounts, ordered
// asc by (CreatedAt, ID).
func (s *Store) ListTransactions(_ context.Context, userID uuid.UUID) ([]finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.txKeysByUser[userID]
	out := make([]finance.Transaction, 0, len(keys))
	for _, k := range keys {
		if t, ok := s.txs[k.ID]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

// GetTransaction returns a single transaction if it belongs to one of the
// user's accounts.
func (s *Store) GetTransaction(_ context.Context, userID, txID uuid.UUID) (finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[txID]
	if !ok {
		return finance.Transaction{}, errs.ErrNotFound
	}
	acc, ok := s.accounts[t.AccountID]
	if !ok || acc.UserID != userID {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return *t, nil
}

// ListAccountTransactions returns a single account's transactions in order.
func (s *Store) ListAccountTransactions(ctx context.Context, userID, accountID uuid.UUID) ([]finance.Transaction, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	all, err := s.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]finance.Transaction, 0, len(all))
	for _, t := range all {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

// TransactionsInWindow returns the user's transactions with CreatedAt in
// [from, to] inclusive, ordered asc.
func (s *Store) TransactionsInWindow(_ context.Context, userID uuid.UUID, from, to time.Time) ([]finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.txKeysByUser[userID]
	start := sort.Search(len(keys), func(i int) bool { return !keys[i].CreatedAt.Before(from) })
	end := sort.Search(len(keys), func(i int) bool { return keys[i].CreatedAt.After(to) })
	if start >= end {
		return []finance.Transaction{}, nil
	}
	out := make([]finance.Transaction, 0, end-start)
	for _, k := range keys[start:end] {
		if t, ok := s.txs[k.ID]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

// --- Spending reports ---

// UpsertSpendingReport inserts or overwrites the report row keyed by
// (user, report type, generated date).
func (s *Store) UpsertSpendingReport(_ context.Context, r finance.SpendingReport) (finance.SpendingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reportKey{UserID: r.UserID, Type: r.ReportType, Date: r.GeneratedDate.Format("2006-01-02")}
	if prev, ok := s.reports[key]; ok {
		// keep identity and creation time of the original row
		r.ID = prev.ID
		r.CreatedAt = prev.CreatedAt
	}
	s.reports[key] = r
	return r, nil
}

// ListSpendingReports returns a user's reports, newest generation date first.
func (s *Store) ListSpendingReports(_ context.Context, userID uuid.UUID) ([]finance.SpendingReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.SpendingReport, 0)
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedDate.Equal(out[j].GeneratedDate) {
			return out[i].GeneratedDate.After(out[j].GeneratedDate)
		}
		return out[i].ReportType < out[j].ReportType
	})
	return out, nil
}

// --- Sentiment ---

// SentimentByTransaction reports whether the transaction already has a result.
func (s *Store) SentimentByTransaction(_ context.Context, txID uuid.UUID) (finance.SentimentAnalysis, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sa, ok := s.sentiments[txID]
	return sa, ok, nil
}

// CreateSentiment persists a classifier verdict, once per transaction.
func (s *Store) CreateSentiment(_ context.Context, sa finance.SentimentAnalysis) (finance.SentimentAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sentiments[sa.TransactionID]; exists {
		return finance.SentimentAnalysis{}, errs.ErrAlreadyAnalyzed
	}
	s.sentiments[sa.TransactionID] = sa
	return sa, nil
}

// ListSentiments returns sentiment results for a user's transactions, newest first.
func (s *Store) ListSentiments(_ context.Context, userID uuid.UUID) ([]finance.SentimentAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.SentimentAnalysis, 0)
	for txID, sa := range s.sentiments {
		t, ok := s.txs[txID]
		if !ok {
			continue
		}
		acc, ok := s.accounts[t.AccountID]
		if !ok || acc.UserID != userID {
			continue
		}
		out = append(out, sa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Idempotency ---

// GetTransactionByIdempotencyKey resolves a transaction by idempotency key for the user.
func (s *Store) GetTransactionByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (finance.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.txIdem[userID]; ok {
		if id, ok2 := m[key]; ok2 {
			if t, ok3 := s.txs[id]; ok3 {
				return *t, true, nil
			}
		}
	}
	return finance.Transaction{}, false, nil
}

// SaveIdempotencyKey stores a mapping from (user, key) to transaction id.
func (s *Store) SaveIdempotencyKey(_ context.Context, userID uuid.UUID, key string, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.txIdem[userID]
	if !ok {
		m = make(map[string]uuid.UUID)
		s.txIdem[userID] = m
	}
	// Only set if absent to preserve idempotency
	if _, exists := m[key]; !exists {
		m[key] = txID
	}
	return nil
}

// insertTxIndexLocked inserts k into the per-user sorted index, keeping order
// asc by (CreatedAt, ID). Caller must hold s.mu (write lock).
func (s *Store) insertTxIndexLocked(userID uuid.UUID, k txKey) {
	keys := s.txKeysByUser[userID]
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].CreatedAt.After(k.CreatedAt) {
			return true
		}
		if keys[i].CreatedAt.Equal(k.CreatedAt) {
			return keys[i].ID.String() > k.ID.String()
		}
		return false
	})
	if i == len(keys) {
		s.txKeysByUser[userID] = append(keys, k)
		return
	}
	keys = append(keys, txKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.txKeysByUser[userID] = keys
}
