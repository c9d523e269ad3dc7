// Package v1 wires the HTTP surface of the finbook service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sehyunkim/finbook/internal/service/account"
	"github.com/sehyunkim/finbook/internal/service/ledger"
	"github.com/sehyunkim/finbook/internal/service/report"
	"github.com/sehyunkim/finbook/internal/service/sentiment"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	ledgerSvc    ledger.Service
	accountSvc   account.Service
	reportSvc    *report.Service
	sentimentSvc sentiment.Service
	accReader    AccountReader
	txReader     TransactionReader
	idemStore    IdempotencyStore
	log          *slog.Logger
	rt           *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The report and sentiment services arrive prebuilt because they carry extra
// dependencies (job publisher, classifier); ledger and account services are
// assembled here from their repo and writer halves.
func New(accReader AccountReader, txReader TransactionReader, idem IdempotencyStore,
	lrepo ledger.Repo, lwriter ledger.Writer, arepo account.Repo, awriter account.Writer,
	reportSvc *report.Service, sentimentSvc sentiment.Service, logger *slog.Logger) *Server {

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	if mw := authJWTFromEnv(); mw != nil {
		r.Use(mw)
	}

	s := &Server{
		ledgerSvc:    ledger.New(lrepo, lwriter),
		accountSvc:   account.New(arepo, awriter),
		reportSvc:    reportSvc,
		sentimentSvc: sentimentSvc,
		accReader:    accReader,
		txReader:     txReader,
		idemStore:    idem,
		rt:           r,
		log:          logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Accounts (v1)
	s.rt.With(s.validatePostAccount()).Post("/v1/accounts", s.postAccount)
	s.rt.With(s.validateUserQuery(ctxKeyListAccounts)).Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Get("/v1/accounts/{id}/transactions", s.listAccountTransactions)
	// Transactions (v1)
	s.rt.With(s.validatePostTransaction()).Post("/v1/transactions", s.postTransaction)
	s.rt.With(s.validateUserQuery(ctxKeyListTransactions)).Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.Get("/v1/transactions/{id}/sentiment", s.getTransactionSentiment)
	// Reports (v1)
	s.rt.With(s.validateGenerateReport()).Post("/v1/reports/generate", s.generateReport)
	s.rt.With(s.validateUserQuery(ctxKeyListReports)).Get("/v1/reports", s.listReports)
	// Sentiment (v1)
	s.rt.With(s.validateAnalyzeSentiment()).Post("/v1/sentiment", s.analyzeSentiment)
	s.rt.With(s.validateUserQuery(ctxKeyListSentiments)).Get("/v1/sentiment", s.listSentiments)
	// Dictionary (v1)
	s.rt.Get("/v1/dictionary/banks", s.getBanksDictionary)
	s.rt.Get("/v1/dictionary/categories", s.getCategoriesDictionary)
	s.rt.Get("/v1/dictionary/methods", s.getMethodsDictionary)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
