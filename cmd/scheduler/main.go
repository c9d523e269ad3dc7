// The scheduler fans report jobs out to every active user. Weekly runs fire
// Monday 00:00 and monthly runs fire on the 1st at 00:00, both in the
// configured time zone.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sehyunkim/finbook/internal/config"
	"github.com/sehyunkim/finbook/internal/finance"
	"github.com/sehyunkim/finbook/internal/jobs/rabbitmq"
	"github.com/sehyunkim/finbook/internal/service/report"
	pgstore "github.com/sehyunkim/finbook/internal/storage/postgres"
)

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
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required for the scheduler")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the scheduler")
		os.Exit(1)
	}

	pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	client, err := rabbitmq.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to connect to AMQP", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	svc := report.New(pg, pg, client, report.Bucketing(cfg.ReportBucketing), cfg.Location(), cfg.JobMaxRetries)
	loc := cfg.Location()

	logger.Info("finbook scheduler starting", "timezone", cfg.Timezone)

	for {
		now := time.Now().In(loc)
		fireAt, kinds := nextFire(now)
		logger.Info("next run scheduled", "periods", kinds, "at", fireAt)

		timer := time.NewTimer(time.Until(fireAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("finbook scheduler stopped")
			return
		case <-timer.C:
		}

		runAt := time.Now().In(loc)
		for _, kind := range kinds {
			res, err := svc.ScheduleAll(ctx, kind, runAt)
			if err != nil {
				logger.Error("schedule run failed", "period", kind, "err", err)
				continue
			}
			logger.Info("schedule run complete",
				"period", kind,
				"published", res.Published,
				"failed", len(res.Failures))
			for _, f := range res.Failures {
				logger.Error("failed to publish report job", "user_id", f.UserID, "err", f.Err)
			}
		}
	}
}

// nextFire returns the next boundary and every period kind due at it. When the
// 1st of a month lands on a Monday the weekly and monthly boundaries coincide
// and both runs fire.
func nextFire(now time.Time) (time.Time, []finance.PeriodKind) {
	weeklyAt := nextWeekly(now)
	monthlyAt := nextMonthly(now)
	switch {
	case weeklyAt.Before(monthlyAt):
		return weeklyAt, []finance.PeriodKind{finance.PeriodWeekly}
	case monthlyAt.Before(weeklyAt):
		return monthlyAt, []finance.PeriodKind{finance.PeriodMonthly}
	default:
		return weeklyAt, []finance.PeriodKind{finance.PeriodWeekly, finance.PeriodMonthly}
	}
}

// nextWeekly returns the next Monday 00:00 strictly after now.
func nextWeekly(now time.Time) time.Time {
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// nextMonthly returns the next 1st of the month at 00:00 strictly after now.
func nextMonthly(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}

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
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
