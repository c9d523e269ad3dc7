// Package ledger implements the ledger mutation rules: a transaction is
// validated, applied to its account atomically in storage, and recorded with
// the post-transaction balance. History is append-only.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error)
	GetTransaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
	ListAccountTransactions(ctx context.Context, userID, accountID uuid.UUID) ([]finance.Transaction, error)
}

// Writer defines write operations needed by the service. ApplyTransaction must
// serialize mutations per account and commit the balance update together with
// the transaction insert, or not at all.
type Writer interface {
	ApplyTransaction(ctx context.Context, userID uuid.UUID, draft finance.Transaction) (finance.Transaction, error)
}

// CreateInput carries a requested ledger mutation.
type CreateInput struct {
	UserID      uuid.UUID
	AccountID   uuid.UUID
	Type        finance.TransactionType
	AmountMinor int64
	Category    finance.Category
	Detail      string
	Method      finance.TransactionMethod
}

// Service exposes validation and creation of transactions plus history reads.
type Service interface {
	ValidateCreate(in CreateInput) error
	Create(ctx context.Context, in CreateInput) (finance.Transaction, error)
	List(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error)
	Get(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
	ListForAccount(ctx context.Context, userID, accountID uuid.UUID) ([]finance.Transaction, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// ValidateCreate performs the static checks that need no storage access.
func (s *service) ValidateCreate(in CreateInput) error {
	if in.UserID == uuid.Nil || in.AccountID == uuid.Nil {
		return errs.ErrInvalid
	}
	if !finance.ValidTransactionType(in.Type) {
		return errs.ErrInvalid
	}
	if in.AmountMinor <= 0 {
		return errs.ErrInvalidAmount
	}
	if in.Category != "" && !finance.ValidCategory(in.Category) {
		return errs.ErrInvalid
	}
	if in.Method != "" && !finance.ValidMethod(in.Method) {
		return errs.ErrInvalid
	}
	return nil
}

// Create applies one mutation to the account. The account lookup here only
// resolves the currency and ownership for building the draft; the
// authoritative balance read happens inside Writer.ApplyTransaction under the
// store's per-account serialization.
func (s *service) Create(ctx context.Context, in CreateInput) (finance.Transaction, error) {
	if err := s.ValidateCreate(in); err != nil {
		return finance.Transaction{}, err
	}
	acc, err := s.repo.GetAccount(ctx, in.UserID, in.AccountID)
	if err != nil {
		return finance.Transaction{}, err
	}
	amount, err := money.NewAmountFromMinorUnits(string(acc.Currency), in.AmountMinor)
	if err != nil {
		return finance.Transaction{}, errs.ErrInvalidAmount
	}

	category := in.Category
	if category == "" {
		category = finance.CategoryOther
	}
	method := in.Method
	if method == "" {
		method = finance.MethodEtc
	}

	draft := finance.Transaction{
		ID:        uuid.New(),
		AccountID: in.AccountID,
		Type:      in.Type,
		Category:  category,
		Amount:    amount,
		Detail:    in.Detail,
		Method:    method,
		CreatedAt: time.Now().UTC(),
	}
	return s.writer.ApplyTransaction(ctx, in.UserID, draft)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListTransactions(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error) {
	if userID == uuid.Nil || txID == uuid.Nil {
		return finance.Transaction{}, errs.ErrInvalid
	}
	return s.repo.GetTransaction(ctx, userID, txID)
}

func (s *service) ListForAccount(ctx context.Context, userID, accountID uuid.UUID) ([]finance.Transaction, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListAccountTransactions(ctx, userID, accountID)
}
