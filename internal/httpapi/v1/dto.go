package v1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/finance"
)

type postAccountRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	AccountNumber string    `json:"account_number,omitempty"`
	BankCode      string    `json:"bank_code"`
	Type          string    `json:"type"`
	Currency      string    `json:"currency,omitempty"`
}

type accountResponse struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	AccountNumber string    `json:"account_number"`
	BankCode      string    `json:"bank_code"`
	Type          string    `json:"type"`
	BalanceMinor  int64     `json:"balance_minor"`
	Balance       string    `json:"balance"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

type postTransactionRequest struct {
	UserID      uuid.UUID `json:"user_id"`
	AccountID   uuid.UUID `json:"account_id"`
	Type        string    `json:"type"`
	AmountMinor int64     `json:"amount_minor"`
	Category    string    `json:"category,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Method      string    `json:"method,omitempty"`
}

type transactionResponse struct {
	ID                uuid.UUID `json:"id"`
	AccountID         uuid.UUID `json:"account_id"`
	Type              string    `json:"type"`
	Category          string    `json:"category"`
	AmountMinor       int64     `json:"amount_minor"`
	Amount            string    `json:"amount"`
	BalanceAfterMinor int64     `json:"balance_after_minor"`
	Detail            string    `json:"detail,omitempty"`
	Method            string    `json:"method"`
	CreatedAt         time.Time `json:"created_at"`
}

type generateReportRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Period string    `json:"period"`
}

type generateReportResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Period string    `json:"period"`
	JobID  string    `json:"job_id"`
	Status string    `json:"status"`
}

type reportResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	ReportType    string          `json:"report_type"`
	GeneratedDate string          `json:"generated_date"`
	Data          json.RawMessage `json:"data"`
	CreatedAt     time.Time       `json:"created_at"`
}

type analyzeSentimentRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Text          string    `json:"text"`
}

type sentimentResponse struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Text          string    `json:"text"`
	Sentiment     string    `json:"sentiment"`
	Score         float64   `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// userQuery holds the validated user_id query param shared by list endpoints.
type userQuery struct {
	UserID uuid.UUID
}

func toAccountResponse(a finance.Account) accountResponse {
	minor, _ := a.Balance.MinorUnits()
	return accountResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		AccountNumber: a.AccountNumber,
		BankCode:      string(a.BankCode),
		Type:          string(a.Type),
		BalanceMinor:  minor,
		Balance:       a.Balance.String(),
		Currency:      string(a.Currency),
		CreatedAt:     a.CreatedAt,
	}
}

func toTransactionResponse(t finance.Transaction) transactionResponse {
	minor, _ := t.Amount.MinorUnits()
	after, _ := t.BalanceAfter.MinorUnits()
	return transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Category:          string(t.Category),
		AmountMinor:       minor,
		Amount:            t.Amount.String(),
		BalanceAfterMinor: after,
		Detail:            t.Detail,
		Method:            string(t.Method),
		CreatedAt:         t.CreatedAt,
	}
}

func toReportResponse(r finance.SpendingReport) reportResponse {
	return reportResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		ReportType:    string(r.ReportType),
		GeneratedDate: r.GeneratedDate.Format("2006-01-02"),
		Data:          json.RawMessage(r.Data),
		CreatedAt:     r.CreatedAt,
	}
}

func toSentimentResponse(sa finance.SentimentAnalysis) sentimentResponse {
	return sentimentResponse{
		ID:            sa.ID,
		TransactionID: sa.TransactionID,
		Text:          sa.Text,
		Sentiment:     string(sa.Sentiment),
		Score:         sa.Score,
		CreatedAt:     sa.CreatedAt,
	}
}
