package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/classifier"
	"github.com/sehyunkim/finbook/internal/finance"
	"github.com/sehyunkim/finbook/internal/jobs/inmemory"
	"github.com/sehyunkim/finbook/internal/service/report"
	"github.com/sehyunkim/finbook/internal/service/sentiment"
	"github.com/sehyunkim/finbook/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type txResp struct {
	ID                string `json:"id"`
	AccountID         string `json:"account_id"`
	Type              string `json:"type"`
	Category          string `json:"category"`
	AmountMinor       int64  `json:"amount_minor"`
	BalanceAfterMinor int64  `json:"balance_after_minor"`
	Method            string `json:"method"`
}

type acctResp struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Type          string `json:"type"`
	BalanceMinor  int64  `json:"balance_minor"`
	Currency      string `json:"currency"`
}

type testEnv struct {
	store     *memory.Store
	handler   http.Handler
	queue     *inmemory.Queue
	reportSvc *report.Service
	userID    uuid.UUID
	account   finance.Account
}

func setup(t *testing.T) testEnv {
	t.Helper()
	store := memory.New()
	user := finance.User{ID: uuid.New(), Active: true}
	store.SeedUser(user)
	acc := finance.Account{
		ID:            uuid.New(),
		UserID:        user.ID,
		AccountNumber: "088-1000-000001",
		BankCode:      finance.BankShinhan,
		Type:          finance.AccountChecking,
		Balance:       finance.ZeroAmount(finance.CurrencyUSD),
		Currency:      finance.CurrencyUSD,
		CreatedAt:     time.Now().UTC(),
	}
	store.SeedAccount(acc)

	queue := inmemory.NewQueue(16, 1)
	t.Cleanup(func() { _ = queue.Close() })
	reportSvc := report.New(store, store, queue, report.BucketCategory, time.UTC, 1)
	sentimentSvc := sentiment.New(store, store, classifier.Keyword{})

	h := New(store, store, store, store, store, store, store, reportSvc, sentimentSvc, testLogger()).Handler()
	return testEnv{store: store, handler: h, queue: queue, reportSvc: reportSvc, userID: user.ID, account: acc}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostTransaction_DepositAndWithdraw(t *testing.T) {
	env := setup(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/transactions", map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "DEPOSIT",
		"amount_minor": 100000,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tr txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.BalanceAfterMinor != 100000 || tr.Category != "OTHER" {
		t.Fatalf("unexpected response: %+v", tr)
	}

	rec = doJSON(t, env.handler, http.MethodPost, "/v1/transactions", map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "WITHDRAW",
		"amount_minor": 30000,
		"category":     "FOOD",
		"method":       "CARD",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.BalanceAfterMinor != 70000 {
		t.Fatalf("balance_after_minor = %d, want 70000", tr.BalanceAfterMinor)
	}
}

func TestPostTransaction_InsufficientFunds(t *testing.T) {
	env := setup(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/transactions", map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "WITHDRAW",
		"amount_minor": 500,
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errResp
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != "insufficient_funds" {
		t.Fatalf("code = %q, want insufficient_funds", er.Code)
	}

	// The failed withdrawal must leave no transaction behind.
	rec = doJSON(t, env.handler, http.MethodGet, "/v1/transactions?user_id="+env.userID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("transactions = %d, want 0", len(list))
	}
}

func TestPostTransaction_IdempotencyReplay(t *testing.T) {
	env := setup(t)
	body := map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "DEPOSIT",
		"amount_minor": 5000,
	}
	hdr := map[string]string{"Idempotency-Key": "txn-abc-1"}

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/transactions", body, hdr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var first txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, env.handler, http.MethodPost, "/v1/transactions", body, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var second txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay returned id %s, want %s", second.ID, first.ID)
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/v1/transactions?user_id="+env.userID.String(), nil, nil)
	var list []txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("transactions = %d, want 1", len(list))
	}
}

func TestPostTransaction_Validation(t *testing.T) {
	env := setup(t)

	// unknown transaction type
	rec := doJSON(t, env.handler, http.MethodPost, "/v1/transactions", map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "TRANSFER",
		"amount_minor": 100,
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	// zero amount
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/transactions", map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "DEPOSIT",
		"amount_minor": 0,
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errResp
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != "invalid_amount" {
		t.Fatalf("code = %q, want invalid_amount", er.Code)
	}

	// missing content type
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
}

func TestAccounts_CreateListGet(t *testing.T) {
	env := setup(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/accounts", map[string]any{
		"user_id":   env.userID.String(),
		"bank_code": "004",
		"type":      "SAVINGS",
		"currency":  "KRW",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created acctResp
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.AccountNumber == "" || created.BalanceMinor != 0 || created.Currency != "KRW" {
		t.Fatalf("unexpected response: %+v", created)
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/v1/accounts?user_id="+env.userID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []acctResp
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("accounts = %d, want 2", len(list))
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/v1/accounts/"+created.ID+"?user_id="+env.userID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// other users cannot see the account
	rec = doJSON(t, env.handler, http.MethodGet, "/v1/accounts/"+created.ID+"?user_id="+uuid.NewString(), nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	// accounts cannot be opened for users that do not exist
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/accounts", map[string]any{
		"user_id":   uuid.NewString(),
		"bank_code": "004",
		"type":      "SAVINGS",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReports_GenerateAndList(t *testing.T) {
	env := setup(t)

	// invalid period is rejected before anything is enqueued
	rec := doJSON(t, env.handler, http.MethodPost, "/v1/reports/generate", map[string]any{
		"user_id": env.userID.String(),
		"period":  "yearly",
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	// unknown users are rejected before anything is enqueued
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/reports/generate", map[string]any{
		"user_id": uuid.NewString(),
		"period":  "weekly",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d: %s", rec.Code, rec.Body.String())
	}

	// start a worker so the accepted job actually builds the report
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := env.queue.Start(ctx, env.reportSvc.Handler()); err != nil {
		t.Fatalf("start queue: %v", err)
	}

	rec = doJSON(t, env.handler, http.MethodPost, "/v1/reports/generate", map[string]any{
		"user_id": env.userID.String(),
		"period":  "weekly",
	}, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.JobID == "" {
		t.Fatalf("expected a job id, got %+v", accepted)
	}

	deadline := time.After(2 * time.Second)
	for {
		rec = doJSON(t, env.handler, http.MethodGet, "/v1/reports?user_id="+env.userID.String(), nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var reports []struct {
			ReportType    string          `json:"report_type"`
			GeneratedDate string          `json:"generated_date"`
			Data          json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(reports) == 1 {
			if reports[0].ReportType != "weekly" {
				t.Fatalf("report_type = %q, want weekly", reports[0].ReportType)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("report was not built within 2s")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSentiment_AnalyzeDuplicateAndGet(t *testing.T) {
	env := setup(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/transactions", map[string]any{
		"user_id":      env.userID.String(),
		"account_id":   env.account.ID.String(),
		"type":         "DEPOSIT",
		"amount_minor": 4500,
		"detail":       "team lunch",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tr txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}

	body := map[string]any{
		"user_id":        env.userID.String(),
		"transaction_id": tr.ID,
		"text":           "had a great time, totally worth it",
	}
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/sentiment", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sa struct {
		Sentiment string  `json:"sentiment"`
		Score     float64 `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sa); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sa.Sentiment != "POSITIVE" {
		t.Fatalf("sentiment = %q, want POSITIVE", sa.Sentiment)
	}

	// a transaction is analyzed at most once
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/sentiment", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errResp
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != "already_analyzed" {
		t.Fatalf("code = %q, want already_analyzed", er.Code)
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/v1/transactions/"+tr.ID+"/sentiment?user_id="+env.userID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/v1/sentiment?user_id="+env.userID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuxEndpoints(t *testing.T) {
	env := setup(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, env.handler, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/dictionary/banks", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var dict struct {
		Items []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dict); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dict.Items) != 8 {
		t.Fatalf("banks = %d, want 8", len(dict.Items))
	}
}
