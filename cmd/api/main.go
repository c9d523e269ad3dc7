package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sehyunkim/finbook/internal/classifier"
	"github.com/sehyunkim/finbook/internal/config"
	"github.com/sehyunkim/finbook/internal/finance"
	httpapi "github.com/sehyunkim/finbook/internal/httpapi/v1"
	"github.com/sehyunkim/finbook/internal/jobs"
	"github.com/sehyunkim/finbook/internal/jobs/inmemory"
	"github.com/sehyunkim/finbook/internal/jobs/rabbitmq"
	"github.com/sehyunkim/finbook/internal/service/account"
	"github.com/sehyunkim/finbook/internal/service/ledger"
	"github.com/sehyunkim/finbook/internal/service/report"
	"github.com/sehyunkim/finbook/internal/service/sentiment"
	"github.com/sehyunkim/finbook/internal/storage/memory"
	pgstore "github.com/sehyunkim/finbook/internal/storage/postgres"
)

// store is the union of everything the API needs from a storage backend.
// Both the in-memory and the postgres store satisfy it.
type store interface {
	httpapi.Repository
	ledger.Repo
	ledger.Writer
	account.Repo
	account.Writer
	report.Repo
	report.Writer
	sentiment.Repo
	sentiment.Writer
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	var st store
	var closeFns []func()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFns = append(closeFns, pg.Close)
		if devSeedEnabled() {
			user, accs, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				printDevSeedBanner(user, accs)
			}
		}
		st = pg
		logger.Info("storage backend: postgres")
	} else {
		mem := memory.New()
		user, accs := seedMemory(mem)
		printDevSeedBanner(user, accs)
		st = mem
		logger.Info("storage backend: memory")
	}

	// Job transport: AMQP when configured, otherwise an in-process queue with
	// a consumer running alongside the API.
	var publisher jobs.Publisher
	var inproc *inmemory.Queue
	if cfg.AMQPURL != "" {
		client, err := rabbitmq.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to AMQP", "err", err)
			os.Exit(1)
		}
		closeFns = append(closeFns, func() { _ = client.Close() })
		publisher = client
		logger.Info("job transport: amqp", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		inproc = inmemory.NewQueue(cfg.QueueBuffer, cfg.WorkerCount)
		closeFns = append(closeFns, func() { _ = inproc.Close() })
		publisher = inproc
		logger.Info("job transport: in-process queue", "workers", cfg.WorkerCount)
	}

	reportSvc := report.New(st, st, publisher, report.Bucketing(cfg.ReportBucketing), cfg.Location(), cfg.JobMaxRetries)
	sentimentSvc := sentiment.New(st, st, buildClassifier(ctx, cfg, logger))

	if inproc != nil {
		if err := inproc.Start(ctx, jobs.Instrument(reportSvc.Handler())); err != nil {
			logger.Error("failed to start in-process workers", "err", err)
			os.Exit(1)
		}
	}

	handler := httpapi.New(st, st, st, st, st, st, st, reportSvc, sentimentSvc, logger).Handler()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("finbook api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	for _, fn := range closeFns {
		fn()
	}
}

// buildClassifier picks Gemini when credentials are present and falls back to
// the keyword classifier for offline development. Both run behind the
// circuit-breaker wrapper.
func buildClassifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) classifier.Classifier {
	var inner classifier.Classifier
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		g, err := classifier.NewGemini(ctx, cfg.ClassifierModel)
		if err != nil {
			logger.Error("failed to build gemini classifier, falling back to keyword", "err", err)
			inner = classifier.Keyword{}
		} else {
			inner = g
			logger.Info("sentiment classifier: gemini", "model", cfg.ClassifierModel)
		}
	} else {
		inner = classifier.Keyword{}
		logger.Info("sentiment classifier: keyword (no API key configured)")
	}
	return classifier.NewResilient(inner, cfg.ClassifierTimeout, logger)
}

func devSeedEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED")))
	return v == "1" || v == "true" || v == "yes"
}

func seedMemory(mem *memory.Store) (finance.User, []finance.Account) {
	user := finance.User{ID: uuid.New(), Active: true}
	mem.SeedUser(user)
	checking := finance.Account{
		ID:            uuid.New(),
		UserID:        user.ID,
		AccountNumber: "088-1234-567890",
		BankCode:      finance.BankShinhan,
		Type:          finance.AccountChecking,
		Balance:       finance.ZeroAmount(finance.CurrencyKRW),
		Currency:      finance.CurrencyKRW,
		CreatedAt:     time.Now().UTC(),
	}
	savings := finance.Account{
		ID:            uuid.New(),
		UserID:        user.ID,
		AccountNumber: "090-2222-333344",
		BankCode:      finance.BankKakao,
		Type:          finance.AccountSavings,
		Balance:       finance.ZeroAmount(finance.CurrencyKRW),
		Currency:      finance.CurrencyKRW,
		CreatedAt:     time.Now().UTC(),
	}
	mem.SeedAccount(checking)
	mem.SeedAccount(savings)
	return user, []finance.Account{checking, savings}
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs.
func printDevSeedBanner(user finance.User, accs []finance.Account) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID.String())
	for _, a := range accs {
		fmt.Printf("%s_account_id: %s (%s)\n", strings.ToLower(string(a.Type)), a.ID.String(), a.AccountNumber)
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
