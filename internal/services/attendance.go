package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"campuscoin/internal/db"
	"campuscoin/internal/models"
	"campuscoin/internal/store"
	"campuscoin/internal/weeks"
)

type AttendanceMark struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type BulkResult struct {
	Date    string `json:"date"`
	Marked  int    `json:"marked"`
	Updated int    `json:"updated"`
}

type AttendanceService struct {
	txRunner   db.TxRunner
	attendance AttendanceWriter
	audit      AuditStore
	logger     *zap.Logger
}

// AttendanceWriter is the write side of the attendance store.
type AttendanceWriter interface {
	Mark(ctx context.Context, tx store.Getter, id, userID, date, status, markedBy string) (bool, error)
	Delete(ctx context.Context, tx store.Execer, id string) error
}

func NewAttendanceService(txRunner db.TxRunner, attendance AttendanceWriter, audit AuditStore, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{txRunner: txRunner, attendance: attendance, audit: audit, logger: logger}
}

func validAttendanceStatus(status string) bool {
	switch status {
	case models.AttendancePresent, models.AttendanceAbsent, models.AttendanceLate:
		return true
	}
	return false
}

// Mark records one student's status for a date, replacing any earlier mark.
func (s *AttendanceService) Mark(ctx context.Context, markerID, userID, date, status string) (BulkResult, error) {
	return s.MarkBulk(ctx, markerID, date, []AttendanceMark{{UserID: userID, Status: status}})
}

// MarkBulk records all marks for one date in a single transaction.
func (s *AttendanceService) MarkBulk(ctx context.Context, markerID, date string, marks []AttendanceMark) (BulkResult, error) {
	if _, err := weeks.Parse(date); err != nil {
		return BulkResult{}, ErrInvalidDateRange
	}
	if len(marks) == 0 {
		return BulkResult{}, ErrInvalidAttendanceStatus
	}
	for _, mark := range marks {
		if mark.UserID == "" {
			return BulkResult{}, ErrNotFound
		}
		if !validAttendanceStatus(mark.Status) {
			return BulkResult{}, ErrInvalidAttendanceStatus
		}
	}

	var result BulkResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = BulkResult{Date: date}
		for _, mark := range marks {
			inserted, err := s.attendance.Mark(ctx, tx, uuid.NewString(), mark.UserID, date, mark.Status, markerID)
			if err != nil {
				if db.IsForeignKeyViolation(err) {
					return ErrNotFound
				}
				return fmt.Errorf("mark attendance: %w", err)
			}
			if inserted {
				result.Marked++
			} else {
				result.Updated++
			}
		}
		data, _ := json.Marshal(map[string]any{
			"marked":  result.Marked,
			"updated": result.Updated,
		})
		return s.audit.Log(ctx, tx, markerID, "mark_attendance", "attendance", date, string(data))
	})
	if err != nil {
		return BulkResult{}, err
	}
	s.logger.Info("attendance marked",
		zap.String("date", date),
		zap.Int("marked", result.Marked),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

func (s *AttendanceService) Delete(ctx context.Context, actorID, id string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.attendance.Delete(ctx, tx, id); err != nil {
			if errors.Is(err, store.ErrNoRowsAffected) || errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("delete attendance: %w", err)
		}
		return s.audit.Log(ctx, tx, actorID, "delete_attendance", "attendance", id, "")
	})
}
