package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// SeedDev inserts a single active user and two accounts for quick local testing.
func (s *Store) SeedDev(ctx context.Context) (finance.User, []finance.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.User{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	user := finance.User{ID: uuid.New(), Active: true}
	if _, err := tx.Exec(ctx, `insert into users (id, email, active) values ($1, null, true)`, user.ID); err != nil {
		return finance.User{}, nil, err
	}
	checking := finance.Account{ID: uuid.New(), UserID: user.ID, AccountNumber: "110-2345-678901", BankCode: finance.BankShinhan, Type: finance.AccountChecking, Balance: finance.ZeroAmount(finance.CurrencyKRW), Currency: finance.CurrencyKRW, CreatedAt: time.Now().UTC()}
	savings := finance.Account{ID: uuid.New(), UserID: user.ID, AccountNumber: "302-0987-654321", BankCode: finance.BankKakao, Type: finance.AccountSavings, Balance: finance.ZeroAmount(finance.CurrencyKRW), Currency: finance.CurrencyKRW, CreatedAt: time.Now().UTC()}
	accs := []finance.Account{checking, savings}
	for _, a := range accs {
		if _, err := tx.Exec(ctx, `
            insert into accounts (id, user_id, account_number, bank_code, account_type, balance_minor, currency, created_at)
            values ($1,$2,$3,$4,$5,$6,$7,$8)
        `, a.ID, a.UserID, a.AccountNumber, a.BankCode, a.Type, int64(0), a.Currency, a.CreatedAt); err != nil {
			return finance.User{}, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.User{}, nil, err
	}
	return user, accs, nil
}

// --- Users ---

// ListActiveUsers returns every active user, for report fan-out.
func (s *Store) ListActiveUsers(ctx context.Context) ([]finance.User, error) {
	rows, err := s.pool.Query(ctx, `select id, email, active from users where active order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.User, 0)
	for rows.Next() {
		var u finance.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Active); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserExists reports whether a user row exists.
func (s *Store) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `select exists(select 1 from users where id = $1)`, userID).Scan(&exists)
	return exists, err
}

// --- Accounts ---

func scanAccount(row pgx.Row) (finance.Account, error) {
	var a finance.Account
	var balanceMinor int64
	if err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.BankCode, &a.Type, &balanceMinor, &a.Currency, &a.CreatedAt); err != nil {
		return finance.Account{}, err
	}
	amt, err := money.NewAmountFromMinorUnits(string(a.Currency), balanceMinor)
	if err != nil {
		return finance.Account{}, err
	}
	a.Balance = amt
	return a, nil
}

// CreateAccount inserts an account row. A duplicate account number maps to
// errs.ErrConflict.
func (s *Store) CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	minor, _ := a.Balance.MinorUnits()
	_, err := s.pool.Exec(ctx, `
        insert into accounts (id, user_id, account_number, bank_code, account_type, balance_minor, currency, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `, a.ID, a.UserID, a.AccountNumber, a.BankCode, a.Type, minor, a.Currency, a.CreatedAt)
	if isUniqueViolation(err) {
		return finance.Account{}, errs.ErrConflict
	}
	if err != nil {
		return finance.Account{}, err
	}
	return a, nil
}

// ListAccounts returns all accounts for a user.
func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]finance.Account, error) {
	rows, err := s.pool.Query(ctx, `
        select id, user_id, account_number, bank_code, account_type, balance_minor, currency, created_at
        from accounts
        where user_id = $1
        order by account_number
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount fetches a single account by id for a user.
func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
        select id, user_id, account_number, bank_code, account_type, balance_minor, currency, created_at
        from accounts
        where id = $1 and user_id = $2
    `, accountID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Account{}, err
	}
	return a, nil
}

// --- Transactions ---

// ApplyTransaction runs the read-modify-write for one ledger mutation inside a
// single database transaction. The account row is locked with `for update` so
// concurrent mutations of the same account serialize; the balance update and
// the transaction insert commit together or not at all.
func (s *Store) ApplyTransaction(ctx context.Context, userID uuid.UUID, draft finance.Transaction) (finance.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balanceMinor int64
	var currency finance.Currency
	err = tx.QueryRow(ctx, `
        select balance_minor, currency
        from accounts
        where id = $1 and user_id = $2
        for update
    `, draft.AccountID, userID).Scan(&balanceMinor, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Transaction{}, err
	}

	balance, err := money.NewAmountFromMinorUnits(string(currency), balanceMinor)
	if err != nil {
		return finance.Transaction{}, err
	}
	next, err := finance.Apply(balance, draft.Type, draft.Amount)
	if err != nil {
		return finance.Transaction{}, err
	}
	nextMinor, _ := next.MinorUnits()

	if _, err := tx.Exec(ctx, `
        update accounts set balance_minor = $1 where id = $2
    `, nextMinor, draft.AccountID); err != nil {
		return finance.Transaction{}, err
	}

	amountMinor, _ := draft.Amount.MinorUnits()
	if _, err := tx.Exec(ctx, `
        insert into transactions (id, account_id, transaction_type, category, amount_minor, balance_after_minor, detail, method, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, draft.ID, draft.AccountID, draft.Type, draft.Category, amountMinor, nextMinor, draft.Detail, draft.Method, draft.CreatedAt); err != nil {
		return finance.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return finance.Transaction{}, err
	}
	draft.BalanceAfter = next
	return draft, nil
}

func scanTransactions(rows pgx.Rows) ([]finance.Transaction, error) {
	out := make([]finance.Transaction, 0)
	for rows.Next() {
		var t finance.Transaction
		var amountMinor, balanceMinor int64
		var currency finance.Currency
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Category, &amountMinor, &balanceMinor, &t.Detail, &t.Method, &t.CreatedAt, &currency); err != nil {
			return nil, err
		}
		amt, err := money.NewAmountFromMinorUnits(string(currency), amountMinor)
		if err != nil {
			return nil, err
		}
		after, err := money.NewAmountFromMinorUnits(string(currency), balanceMinor)
		if err != nil {
			return nil, err
		}
		t.Amount = amt
		t.BalanceAfter = after
		out = append(out, t)
	}
	return out, rows.Err()
}

const txColumns = `
        t.id, t.account_id, t.transaction_type, t.category, t.amount_minor,
        t.balance_after_minor, t.detail, t.method, t.created_at, a.currency`

// ListTransactions returns all transactions across a user's accounts, ordered
// asc by (created_at, id).
func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        select `+txColumns+`
        from transactions t
        join accounts a on a.id = t.account_id
        where a.user_id = $1
        order by t.created_at asc, t.id asc
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// GetTransaction returns one transaction if owned by the user.
func (s *Store) GetTransaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        select `+txColumns+`
        from transactions t
        join accounts a on a.id = t.account_id
        where t.id = $1 and a.user_id = $2
    `, txID, userID)
	if err != nil {
		return finance.Transaction{}, err
	}
	defer rows.Close()
	txs, err := scanTransactions(rows)
	if err != nil {
		return finance.Transaction{}, err
	}
	if len(txs) == 0 {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return txs[0], nil
}

// ListAccountTransactions returns one account's transactions in order.
func (s *Store) ListAccountTransactions(ctx context.Context, userID, accountID uuid.UUID) ([]finance.Transaction, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select `+txColumns+`
        from transactions t
        join accounts a on a.id = t.account_id
        where t.account_id = $1 and a.user_id = $2
        order by t.created_at asc, t.id asc
    `, accountID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// TransactionsInWindow returns the user's transactions with created_at in
// [from, to] inclusive. Runs as a single statement, so the report builder sees
// a consistent snapshot.
func (s *Store) TransactionsInWindow(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]finance.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        select `+txColumns+`
        from transactions t
        join accounts a on a.id = t.account_id
        where a.user_id = $1 and t.created_at between $2 and $3
        order by t.created_at asc, t.id asc
    `, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// --- Spending reports ---

// UpsertSpendingReport inserts or overwrites the (user, type, date) report row.
func (s *Store) UpsertSpendingReport(ctx context.Context, r finance.SpendingReport) (finance.SpendingReport, error) {
	err := s.pool.QueryRow(ctx, `
        insert into spending_reports (id, user_id, report_type, generated_date, json_data, created_at)
        values ($1,$2,$3,$4,$5,$6)
        on conflict (user_id, report_type, generated_date)
        do update set json_data = excluded.json_data
        returning id, created_at
    `, r.ID, r.UserID, r.ReportType, r.GeneratedDate, r.Data, r.CreatedAt).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return finance.SpendingReport{}, err
	}
	return r, nil
}

// ListSpendingReports returns a user's reports, newest generation date first.
func (s *Store) ListSpendingReports(ctx context.Context, userID uuid.UUID) ([]finance.SpendingReport, error) {
	rows, err := s.pool.Query(ctx, `
        select id, user_id, report_type, generated_date, json_data, created_at
        from spending_reports
        where user_id = $1
        order by generated_date desc, report_type asc
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.SpendingReport, 0)
	for rows.Next() {
		var r finance.SpendingReport
		if err := rows.Scan(&r.ID, &r.UserID, &r.ReportType, &r.GeneratedDate, &r.Data, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Sentiment ---

// SentimentByTransaction fetches an existing result for a transaction, if any.
func (s *Store) SentimentByTransaction(ctx context.Context, txID uuid.UUID) (finance.SentimentAnalysis, bool, error) {
	var sa finance.SentimentAnalysis
	err := s.pool.QueryRow(ctx, `
        select id, transaction_id, text_content, sentiment, score, created_at
        from sentiment_analyses
        where transaction_id = $1
    `, txID).Scan(&sa.ID, &sa.TransactionID, &sa.Text, &sa.Sentiment, &sa.Score, &sa.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.SentimentAnalysis{}, false, nil
	}
	if err != nil {
		return finance.SentimentAnalysis{}, false, err
	}
	return sa, true, nil
}

// CreateSentiment inserts a verdict; the unique(transaction_id) constraint
// makes it write-once and a duplicate maps to errs.ErrAlreadyAnalyzed.
func (s *Store) CreateSentiment(ctx context.Context, sa finance.SentimentAnalysis) (finance.SentimentAnalysis, error) {
	_, err := s.pool.Exec(ctx, `
        insert into sentiment_analyses (id, transaction_id, text_content, sentiment, score, created_at)
        values ($1,$2,$3,$4,$5,$6)
    `, sa.ID, sa.TransactionID, sa.Text, sa.Sentiment, sa.Score, sa.CreatedAt)
	if isUniqueViolation(err) {
		return finance.SentimentAnalysis{}, errs.ErrAlreadyAnalyzed
	}
	if err != nil {
		return finance.SentimentAnalysis{}, err
	}
	return sa, nil
}

// ListSentiments returns sentiment results for a user's transactions, newest first.
func (s *Store) ListSentiments(ctx context.Context, userID uuid.UUID) ([]finance.SentimentAnalysis, error) {
	rows, err := s.pool.Query(ctx, `
        select sa.id, sa.transaction_id, sa.text_content, sa.sentiment, sa.score, sa.created_at
        from sentiment_analyses sa
        join transactions t on t.id = sa.transaction_id
        join accounts a on a.id = t.account_id
        where a.user_id = $1
        order by sa.created_at desc
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.SentimentAnalysis, 0)
	for rows.Next() {
		var sa finance.SentimentAnalysis
		if err := rows.Scan(&sa.ID, &sa.TransactionID, &sa.Text, &sa.Sentiment, &sa.Score, &sa.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// --- Idempotency ---

// GetTransactionByIdempotencyKey resolves a transaction by idempotency key for the user.
func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (finance.Transaction, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
        select transaction_id from transaction_idempotency where user_id = $1 and key = $2
    `, userID, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, false, nil
	}
	if err != nil {
		return finance.Transaction{}, false, err
	}
	t, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return finance.Transaction{}, false, err
	}
	return t, true, nil
}

// SaveIdempotencyKey stores a mapping from (user, key) to transaction id.
func (s *Store) SaveIdempotencyKey(ctx context.Context, userID uuid.UUID, key string, txID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        insert into transaction_idempotency (user_id, key, transaction_id)
        values ($1,$2,$3)
        on conflict (user_id, key) do nothing
    `, userID, key, txID)
	return err
}
