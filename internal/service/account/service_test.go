package account

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
	"github.com/sehyunkim/finbook/internal/storage/memory"
)

func setup(t *testing.T) (Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	user := finance.User{ID: uuid.New(), Active: true}
	store.SeedUser(user)
	return New(store, store), user.ID
}

func TestCreate_Defaults(t *testing.T) {
	svc, userID := setup(t)

	acc, err := svc.Create(context.Background(), CreateInput{
		UserID:   userID,
		BankCode: finance.BankKakao,
		Type:     finance.AccountChecking,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.Currency != finance.CurrencyKRW {
		t.Errorf("currency = %q, want KRW default", acc.Currency)
	}
	if minor, _ := acc.Balance.MinorUnits(); minor != 0 {
		t.Errorf("balance = %d, want 0", minor)
	}
	if ok, _ := regexp.MatchString(`^090-\d{4}-\d{6}$`, acc.AccountNumber); !ok {
		t.Errorf("account number %q does not match bank-prefixed format", acc.AccountNumber)
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:   uuid.New(),
		BankCode: finance.BankKakao,
		Type:     finance.AccountChecking,
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate_DuplicateNumber(t *testing.T) {
	svc, userID := setup(t)
	in := CreateInput{
		UserID:        userID,
		AccountNumber: "004-1111-222222",
		BankCode:      finance.BankKB,
		Type:          finance.AccountSavings,
		Currency:      finance.CurrencyUSD,
	}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("second create err = %v, want ErrConflict", err)
	}
}

func TestValidateCreate(t *testing.T) {
	svc, userID := setup(t)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing user", func(in *CreateInput) { in.UserID = uuid.Nil }},
		{"unknown bank", func(in *CreateInput) { in.BankCode = "999" }},
		{"unknown type", func(in *CreateInput) { in.Type = "CRYPTO" }},
		{"unknown currency", func(in *CreateInput) { in.Currency = "JPY" }},
		{"number too long", func(in *CreateInput) { in.AccountNumber = "004-1111-2222224444444444" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := CreateInput{UserID: userID, BankCode: finance.BankKB, Type: finance.AccountChecking}
			tc.mutate(&in)
			if err := svc.ValidateCreate(in); !errors.Is(err, errs.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestListAndGet_Isolation(t *testing.T) {
	svc, userID := setup(t)

	acc, err := svc.Create(context.Background(), CreateInput{
		UserID:   userID,
		BankCode: finance.BankShinhan,
		Type:     finance.AccountChecking,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := svc.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("accounts = %d, want 1", len(mine))
	}

	if _, err := svc.Get(context.Background(), uuid.New(), acc.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("foreign get err = %v, want ErrNotFound", err)
	}
}
