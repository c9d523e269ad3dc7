package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/finance"
)

// AccountReader abstracts account read operations.
type AccountReader interface {
	// ListAccounts returns all accounts for a given user.
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]finance.Account, error)
	// GetAccount returns a user's account by ID.
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
}

// TransactionReader abstracts transaction read operations.
type TransactionReader interface {
	// ListTransactions returns transactions across a user's accounts.
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error)
	// GetTransaction returns a transaction by id for the user.
	GetTransaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
	// ListAccountTransactions returns a single account's transactions.
	ListAccountTransactions(ctx context.Context, userID, accountID uuid.UUID) ([]finance.Transaction, error)
}

// IdempotencyStore abstracts idempotency key operations for transactions.
type IdempotencyStore interface {
	// GetTransactionByIdempotencyKey resolves a transaction by idempotency key for the user.
	GetTransactionByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (finance.Transaction, bool, error)
	// SaveIdempotencyKey stores an idempotency key mapping for a transaction.
	SaveIdempotencyKey(ctx context.Context, userID uuid.UUID, key string, txID uuid.UUID) error
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Repository composes the read-side operations used by the API.
// It is a convenience union satisfied by the in-memory and postgres stores.
type Repository interface {
	AccountReader
	TransactionReader
	IdempotencyStore
}
