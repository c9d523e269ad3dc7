package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/sehyunkim/finbook/internal/finance"
)

func seed(t *testing.T) (*Store, finance.Account) {
	t.Helper()
	s := New()
	userID := uuid.New()
	s.SeedUser(finance.User{ID: userID, Active: true})
	bal, err := money.NewAmountFromMinorUnits("USD", 100000)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	acc := finance.Account{
		ID:            uuid.New(),
		UserID:        userID,
		AccountNumber: "088-1000-000001",
		BankCode:      finance.BankShinhan,
		Type:          finance.AccountChecking,
		Balance:       bal,
		Currency:      finance.CurrencyUSD,
		CreatedAt:     time.Now().UTC(),
	}
	s.SeedAccount(acc)
	return s, acc
}

func withdraw(t *testing.T, acc finance.Account, minor int64, at time.Time) finance.Transaction {
	t.Helper()
	amt, err := money.NewAmountFromMinorUnits(string(acc.Currency), minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return finance.Transaction{
		ID:        uuid.New(),
		AccountID: acc.ID,
		Type:      finance.TransactionWithdraw,
		Category:  finance.CategoryFood,
		Amount:    amt,
		Method:    finance.MethodCard,
		CreatedAt: at,
	}
}

func TestApplyTransaction_ConcurrentWithdrawals(t *testing.T) {
	s, acc := seed(t)
	ctx := context.Background()

	// 20 goroutines each withdraw 1000 minor units. Every mutation must see the
	// balance left by the previous one, so exactly 100000-20*1000 remains.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := withdraw(t, acc, 1000, time.Now().UTC())
			if _, err := s.ApplyTransaction(ctx, acc.UserID, tx); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetAccount(ctx, acc.UserID, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	minor, _ := got.Balance.MinorUnits()
	if minor != 80000 {
		t.Fatalf("balance = %d, want 80000", minor)
	}
	txs, err := s.ListTransactions(ctx, acc.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 20 {
		t.Fatalf("expected 20 transactions, got %d", len(txs))
	}
}

func TestTransactionsInWindow_InclusiveBounds(t *testing.T) {
	s, acc := seed(t)
	ctx := context.Background()

	from := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 10, 23, 59, 59, 999999000, time.UTC)

	before := withdraw(t, acc, 100, from.Add(-time.Microsecond))
	atStart := withdraw(t, acc, 200, from)
	mid := withdraw(t, acc, 300, from.AddDate(0, 0, 3))
	atEnd := withdraw(t, acc, 400, to)
	after := withdraw(t, acc, 500, to.Add(time.Microsecond))
	for _, tx := range []finance.Transaction{mid, after, atStart, before, atEnd} {
		if _, err := s.ApplyTransaction(ctx, acc.UserID, tx); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	got, err := s.TransactionsInWindow(ctx, acc.UserID, from, to)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 in window, got %d", len(got))
	}
	want := []uuid.UUID{atStart.ID, mid.ID, atEnd.ID}
	for i, tx := range got {
		if tx.ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, tx.ID, want[i])
		}
	}
}

func TestUpsertSpendingReport_KeepsIdentity(t *testing.T) {
	s, acc := seed(t)
	ctx := context.Background()

	day := time.Date(2025, 8, 6, 0, 0, 0, 0, time.UTC)
	first, err := s.UpsertSpendingReport(ctx, finance.SpendingReport{
		ID:            uuid.New(),
		UserID:        acc.UserID,
		ReportType:    finance.PeriodWeekly,
		GeneratedDate: day,
		Data:          []byte(`{"categories":["FOOD"],"spending":[10]}`),
		CreatedAt:     time.Date(2025, 8, 6, 1, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := s.UpsertSpendingReport(ctx, finance.SpendingReport{
		ID:            uuid.New(),
		UserID:        acc.UserID,
		ReportType:    finance.PeriodWeekly,
		GeneratedDate: day,
		Data:          []byte(`{"categories":["FOOD"],"spending":[25]}`),
		CreatedAt:     time.Date(2025, 8, 6, 2, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("regeneration minted a new row: %+v vs %+v", second, first)
	}

	// A different period on the same day is its own row.
	if _, err := s.UpsertSpendingReport(ctx, finance.SpendingReport{
		ID:            uuid.New(),
		UserID:        acc.UserID,
		ReportType:    finance.PeriodMonthly,
		GeneratedDate: day,
		Data:          []byte(`{"dates":[],"spending":[]}`),
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("upsert monthly: %v", err)
	}
	reports, err := s.ListSpendingReports(ctx, acc.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
}

func TestSaveIdempotencyKey_FirstWriteWins(t *testing.T) {
	s, acc := seed(t)
	ctx := context.Background()

	tx1 := withdraw(t, acc, 100, time.Now().UTC())
	tx2 := withdraw(t, acc, 200, time.Now().UTC())
	for _, tx := range []finance.Transaction{tx1, tx2} {
		if _, err := s.ApplyTransaction(ctx, acc.UserID, tx); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	if err := s.SaveIdempotencyKey(ctx, acc.UserID, "k1", tx1.ID); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Re-saving the same key must not repoint it.
	if err := s.SaveIdempotencyKey(ctx, acc.UserID, "k1", tx2.ID); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, ok, err := s.GetTransactionByIdempotencyKey(ctx, acc.UserID, "k1")
	if err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if got.ID != tx1.ID {
		t.Fatalf("key repointed: got %s, want %s", got.ID, tx1.ID)
	}
	// Another user never sees the mapping.
	if _, ok, _ := s.GetTransactionByIdempotencyKey(ctx, uuid.New(), "k1"); ok {
		t.Fatalf("foreign user resolved the key")
	}
}
