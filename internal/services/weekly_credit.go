package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campuscoin/internal/db"
	"campuscoin/internal/events"
	"campuscoin/internal/metrics"
	"campuscoin/internal/models"
	"campuscoin/internal/settings"
	"campuscoin/internal/store"
	"campuscoin/internal/weeks"
)

type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeNoAttendance Outcome = "no_attendance"
	OutcomeError        Outcome = "error"
)

type AccountResult struct {
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	AttendanceCount int64   `json:"attendance_count"`
	CoinsCredited   int64   `json:"coins_credited"`
	NewBalance      int64   `json:"new_balance,omitempty"`
	Outcome         Outcome `json:"outcome"`
	Error           string  `json:"error,omitempty"`
}

type WeekSummary struct {
	WeekStart          string          `json:"week_start"`
	WeekEnd            string          `json:"week_end"`
	CoinsPerAttendance int64           `json:"coins_per_attendance"`
	Processed          int             `json:"processed"`
	Skipped            int             `json:"skipped"`
	NoAttendance       int             `json:"no_attendance"`
	Failed             int             `json:"failed"`
	Results            []AccountResult `json:"results"`
}

type WeeklyCreditService struct {
	txRunner   db.TxRunner
	recorder   *Recorder
	credits    WeeklyCreditStore
	attendance AttendanceStore
	audit      AuditStore
	settings   settings.Provider
	workers    int
	publisher  *events.Publisher
	logger     *zap.Logger
}

func NewWeeklyCreditService(txRunner db.TxRunner, recorder *Recorder, credits WeeklyCreditStore, attendance AttendanceStore, audit AuditStore, provider settings.Provider, workers int, publisher *events.Publisher, logger *zap.Logger) *WeeklyCreditService {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyCreditService{
		txRunner:   txRunner,
		recorder:   recorder,
		credits:    credits,
		attendance: attendance,
		audit:      audit,
		settings:   provider,
		workers:    workers,
		publisher:  publisher,
		logger:     logger,
	}
}

// ProcessWeek credits every student for present attendance in [weekStart, weekEnd].
// Each account runs in its own transaction; one failure never stops the batch.
func (s *WeeklyCreditService) ProcessWeek(ctx context.Context, weekStart, weekEnd, actorID string) (WeekSummary, error) {
	week, err := weeks.ParseRange(weekStart, weekEnd)
	if err != nil {
		return WeekSummary{}, ErrInvalidDateRange
	}
	rate, err := s.settings.CoinsPerAttendance(ctx)
	if err != nil {
		return WeekSummary{}, fmt.Errorf("coins per attendance: %w", err)
	}
	students, err := s.attendance.CountPresentByStudent(ctx, week.Start, week.End)
	if err != nil {
		return WeekSummary{}, fmt.Errorf("count attendance: %w", err)
	}

	results := make([]AccountResult, len(students))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, student := range students {
		g.Go(func() error {
			results[i] = s.processAccount(ctx, student, rate, week)
			return nil
		})
	}
	_ = g.Wait()

	summary := WeekSummary{
		WeekStart:          week.Start,
		WeekEnd:            week.End,
		CoinsPerAttendance: rate,
		Results:            results,
	}
	for _, result := range results {
		metrics.WeeklyCreditOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		switch result.Outcome {
		case OutcomeProcessed:
			summary.Processed++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeNoAttendance:
			summary.NoAttendance++
		case OutcomeError:
			summary.Failed++
		}
	}

	s.recordRun(ctx, actorID, summary)
	s.logger.Info("weekly credit finished",
		zap.String("week_start", week.Start),
		zap.String("week_end", week.End),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("no_attendance", summary.NoAttendance),
		zap.Int("failed", summary.Failed),
	)
	s.publisher.Publish(events.SubjectWeeklyCreditCompleted, events.WeeklyCreditCompleted{
		WeekStart: week.Start,
		WeekEnd:   week.End,
		Processed: summary.Processed,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		RunAt:     time.Now().UTC(),
	})
	return summary, nil
}

func (s *WeeklyCreditService) processAccount(ctx context.Context, student store.StudentAttendance, rate int64, week weeks.Range) AccountResult {
	result := AccountResult{
		UserID:          student.UserID,
		Username:        student.Username,
		AttendanceCount: student.AttendanceCount,
	}
	if err := ctx.Err(); err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}
	coins := student.AttendanceCount * rate

	unlock := s.recorder.lock(student.UserID)
	defer unlock()

	var entry *Entry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		entry = nil
		result.Outcome = ""
		exists, err := s.credits.Exists(ctx, tx, student.UserID, week.Start)
		if err != nil {
			return fmt.Errorf("check weekly credit: %w", err)
		}
		if exists {
			return ErrDuplicateWeeklyCredit
		}
		if coins == 0 {
			result.Outcome = OutcomeNoAttendance
			return nil
		}
		applied, err := s.recorder.applyInTx(ctx, tx, Delta{
			UserID:      student.UserID,
			Ledger:      models.LedgerCoin,
			Amount:      decimal.NewFromInt(coins),
			Kind:        models.KindWeeklyCredit,
			Description: fmt.Sprintf("Weekly credit for %s to %s", week.Start, week.End),
		})
		if err != nil {
			return err
		}
		if err := s.credits.Create(ctx, tx, store.WeeklyCreditInput{
			ID:              uuid.NewString(),
			UserID:          student.UserID,
			WeekStart:       week.Start,
			WeekEnd:         week.End,
			CoinsCredited:   coins,
			AttendanceCount: student.AttendanceCount,
		}); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateWeeklyCredit
			}
			return fmt.Errorf("insert weekly credit: %w", err)
		}
		entry = &applied
		return nil
	})

	switch {
	case errors.Is(err, ErrDuplicateWeeklyCredit):
		result.Outcome = OutcomeSkipped
	case err != nil:
		result.Outcome = OutcomeError
		result.Error = err.Error()
		s.logger.Warn("weekly credit failed for account", zap.String("user_id", student.UserID), zap.Error(err))
	case entry != nil:
		s.recorder.committed(*entry)
		result.Outcome = OutcomeProcessed
		result.CoinsCredited = coins
		result.NewBalance = entry.NewBalance.IntPart()
	}
	return result
}

func (s *WeeklyCreditService) recordRun(ctx context.Context, actorID string, summary WeekSummary) {
	data, _ := json.Marshal(map[string]any{
		"week_end":      summary.WeekEnd,
		"processed":     summary.Processed,
		"skipped":       summary.Skipped,
		"no_attendance": summary.NoAttendance,
		"failed":        summary.Failed,
	})
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.audit.Log(ctx, tx, actorID, "weekly_credit", "week", summary.WeekStart, string(data))
	})
	if err != nil {
		s.logger.Warn("audit weekly credit run", zap.Error(err))
	}
}
