package v1

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/finance"
	"github.com/sehyunkim/finbook/internal/service/account"
	"github.com/sehyunkim/finbook/internal/service/ledger"
	"github.com/sehyunkim/finbook/internal/service/sentiment"
)

type ctxKey string

const ctxKeyPostAccount ctxKey = "validatedPostAccount"
const ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
const ctxKeyGenerateReport ctxKey = "validatedGenerateReport"
const ctxKeyAnalyzeSentiment ctxKey = "validatedAnalyzeSentiment"
const ctxKeyListAccounts ctxKey = "validatedListAccounts"
const ctxKeyListTransactions ctxKey = "validatedListTransactions"
const ctxKeyListReports ctxKey = "validatedListReports"
const ctxKeyListSentiments ctxKey = "validatedListSentiments"

// validatePostAccount parses and validates POST /accounts body and stores CreateInput.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postAccountRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
				return
			}
			in := account.CreateInput{
				UserID:        req.UserID,
				AccountNumber: req.AccountNumber,
				BankCode:      finance.BankCode(req.BankCode),
				Type:          finance.AccountType(req.Type),
				Currency:      finance.Currency(req.Currency),
			}
			if err := s.accountSvc.ValidateCreate(in); err != nil {
				code, msg := mapValidationError(err)
				unprocessable(w, msg, code)
				return
			}
			if !subjectMayAccess(r, in.UserID) {
				writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostTransaction ensures the POST /transactions request adheres to
// business invariants and stores the validated input in the request context.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postTransactionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
				return
			}
			in := ledger.CreateInput{
				UserID:      req.UserID,
				AccountID:   req.AccountID,
				Type:        finance.TransactionType(req.Type),
				AmountMinor: req.AmountMinor,
				Category:    finance.Category(req.Category),
				Detail:      req.Detail,
				Method:      finance.TransactionMethod(req.Method),
			}
			if err := s.ledgerSvc.ValidateCreate(in); err != nil {
				code, msg := mapValidationError(err)
				unprocessable(w, msg, code)
				return
			}
			if !subjectMayAccess(r, in.UserID) {
				writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateGenerateReport parses POST /reports/generate body.
func (s *Server) validateGenerateReport() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req generateReportRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
				return
			}
			if req.UserID == uuid.Nil {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
				return
			}
			if !finance.ValidPeriodKind(finance.PeriodKind(req.Period)) {
				unprocessable(w, "period must be weekly or monthly", "invalid_period")
				return
			}
			if !subjectMayAccess(r, req.UserID) {
				writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyGenerateReport, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateAnalyzeSentiment parses POST /sentiment body.
func (s *Server) validateAnalyzeSentiment() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req analyzeSentimentRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
				return
			}
			in := sentiment.AnalyzeInput{
				UserID:        req.UserID,
				TransactionID: req.TransactionID,
				Text:          req.Text,
			}
			if err := s.sentimentSvc.ValidateAnalyze(in); err != nil {
				code, msg := mapValidationError(err)
				unprocessable(w, msg, code)
				return
			}
			if !subjectMayAccess(r, in.UserID) {
				writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAnalyzeSentiment, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateUserQuery parses and validates the user_id query param shared by
// the list endpoints, storing the result under the given key.
func (s *Server) validateUserQuery(key ctxKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Query().Get("user_id")
			if raw == "" {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
				return
			}
			userID, err := uuid.Parse(raw)
			if err != nil {
				toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
				return
			}
			if !subjectMayAccess(r, userID) {
				writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), key, userQuery{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
