// Package account implements account creation and reads: accounts open with a
// zero balance, account numbers are unique, and only the ledger service may
// touch the balance afterwards.
package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

type Repo interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]finance.Account, error)
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
}

type Writer interface {
	CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error)
}

// CreateInput carries an account-opening request. AccountNumber may be empty,
// in which case one is generated.
type CreateInput struct {
	UserID        uuid.UUID
	AccountNumber string
	BankCode      finance.BankCode
	Type          finance.AccountType
	Currency      finance.Currency
}

type Service interface {
	ValidateCreate(in CreateInput) error
	Create(ctx context.Context, in CreateInput) (finance.Account, error)
	List(ctx context.Context, userID uuid.UUID) ([]finance.Account, error)
	Get(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) ValidateCreate(in CreateInput) error {
	if in.UserID == uuid.Nil {
		return errs.ErrInvalid
	}
	if !finance.ValidBankCode(in.BankCode) {
		return errs.ErrInvalid
	}
	if !finance.ValidAccountType(in.Type) {
		return errs.ErrInvalid
	}
	if in.Currency != "" && !finance.ValidCurrency(in.Currency) {
		return errs.ErrInvalid
	}
	if len(in.AccountNumber) > 20 {
		return errs.ErrInvalid
	}
	return nil
}

// Create opens an account with balance zero. Unknown users surface as
// errs.ErrNotFound; duplicate account numbers as errs.ErrConflict from storage.
func (s *service) Create(ctx context.Context, in CreateInput) (finance.Account, error) {
	if err := s.ValidateCreate(in); err != nil {
		return finance.Account{}, err
	}
	ok, err := s.repo.UserExists(ctx, in.UserID)
	if err != nil {
		return finance.Account{}, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return finance.Account{}, fmt.Errorf("%w: unknown user", errs.ErrNotFound)
	}
	currency := in.Currency
	if currency == "" {
		currency = finance.CurrencyKRW
	}
	number := in.AccountNumber
	if number == "" {
		number = generateAccountNumber(in.BankCode)
	}
	a := finance.Account{
		ID:            uuid.New(),
		UserID:        in.UserID,
		AccountNumber: number,
		BankCode:      in.BankCode,
		Type:          in.Type,
		Balance:       finance.ZeroAmount(currency),
		Currency:      currency,
		CreatedAt:     time.Now().UTC(),
	}
	return s.writer.CreateAccount(ctx, a)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]finance.Account, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListAccounts(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return finance.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, userID, accountID)
}

// generateAccountNumber builds a bank-prefixed pseudo account number like
// "088-4821-930571". Uniqueness is enforced by storage, not here.
func generateAccountNumber(bank finance.BankCode) string {
	var b [5]byte
	_, _ = rand.Read(b[:])
	mid := (uint32(b[0])<<8 | uint32(b[1])) % 10000
	tail := (uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])) % 1000000
	return fmt.Sprintf("%s-%04d-%06d", bank, mid, tail)
}
