package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// TransactionType distinguishes money flowing into or out of an account.
type TransactionType string

const (
	// TransactionDeposit adds the amount to the account balance.
	TransactionDeposit TransactionType = "DEPOSIT"
	// TransactionWithdraw subtracts the amount from the account balance.
	TransactionWithdraw TransactionType = "WITHDRAW"
)

// TransactionMethod describes the instrument used for a transaction.
type TransactionMethod string

const (
	MethodTransfer TransactionMethod = "TRANSFER"
	MethodCard     TransactionMethod = "CARD"
	MethodCash     TransactionMethod = "CASH"
	MethodEtc      TransactionMethod = "ETC"
)

// Category identifies the spending bucket of a transaction.
type Category string

const (
	CategoryFood           Category = "FOOD"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryShopping       Category = "SHOPPING"
	CategoryHousing        Category = "HOUSING"
	CategoryUtilities      Category = "UTILITIES"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryHealth         Category = "HEALTH"
	CategoryEducation      Category = "EDUCATION"
	CategoryFinance        Category = "FINANCE"
	CategoryOther          Category = "OTHER"
	// CategoryIncome is the reporting bucket all deposits collapse into.
	CategoryIncome Category = "INCOME"
)

// BankCode enumerates the supported issuing banks by their clearing code.
type BankCode string

const (
	BankKB      BankCode = "004"
	BankIBK     BankCode = "003"
	BankNH      BankCode = "011"
	BankWoori   BankCode = "020"
	BankHana    BankCode = "081"
	BankShinhan BankCode = "088"
	BankKakao   BankCode = "090"
	BankToss    BankCode = "092"
)

// AccountType enumerates the product type of a bank account.
type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountDeposit  AccountType = "DEPOSIT"
	AccountLoan     AccountType = "LOAN"
)

// Currency enumerates supported account currencies (ISO 4217 codes).
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// PeriodKind is the reporting granularity for spending reports.
type PeriodKind string

const (
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// Sentiment is the label assigned by the external classifier.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// User captures the owner of accounts and reports. Identity is managed
// externally; stores only need existence and the active flag.
type User struct {
	ID     uuid.UUID
	Email  *string
	Active bool
}

// Account represents a bank account belonging to a user.
// The balance is mutated exclusively by the ledger service and always equals
// the BalanceAfter of the account's most recent transaction.
type Account struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountNumber string
	BankCode      BankCode
	Type          AccountType
	Balance       money.Amount
	Currency      Currency
	CreatedAt     time.Time
}

// Transaction is one immutable ledger record. BalanceAfter is the account
// balance at the instant this transaction committed.
type Transaction struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Type         TransactionType
	Category     Category
	Amount       money.Amount
	BalanceAfter money.Amount
	Detail       string
	Method       TransactionMethod
	CreatedAt    time.Time
}

// SpendingReport is the per-period rollup of a user's transactions.
// At most one row exists per (user, report type, generated date); regeneration
// overwrites Data.
type SpendingReport struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ReportType    PeriodKind
	GeneratedDate time.Time // date component only, UTC midnight
	Data          []byte    // JSON payload
	CreatedAt     time.Time
}

// SentimentAnalysis holds the classifier verdict for one transaction's detail
// text. Write-once: a transaction is analyzed at most once.
type SentimentAnalysis struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Text          string
	Sentiment     Sentiment
	Score         float64
	CreatedAt     time.Time
}

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionDeposit, TransactionWithdraw:
		return true
	}
	return false
}

// ValidMethod reports whether m is a known transaction method.
func ValidMethod(m TransactionMethod) bool {
	switch m {
	case MethodTransfer, MethodCard, MethodCash, MethodEtc:
		return true
	}
	return false
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryFood, CategoryTransportation, CategoryShopping, CategoryHousing,
		CategoryUtilities, CategoryEntertainment, CategoryHealth, CategoryEducation,
		CategoryFinance, CategoryOther, CategoryIncome:
		return true
	}
	return false
}

// ValidBankCode reports whether b is a known bank code.
func ValidBankCode(b BankCode) bool {
	switch b {
	case BankKB, BankIBK, BankNH, BankWoori, BankHana, BankShinhan, BankKakao, BankToss:
		return true
	}
	return false
}

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountChecking, AccountSavings, AccountDeposit, AccountLoan:
		return true
	}
	return false
}

// ValidCurrency reports whether c is a supported currency.
func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyKRW, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ValidPeriodKind reports whether k is a known reporting period.
func ValidPeriodKind(k PeriodKind) bool {
	switch k {
	case PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// ValidSentiment reports whether s is a known classifier label.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}
