package store

import (
	"context"
	"fmt"

	"campuscoin/internal/models"
)

type AttendanceStore struct {
	db DB
}

type StudentAttendance struct {
	UserID          string `db:"user_id"`
	Username        string `db:"username"`
	AttendanceCount int64  `db:"attendance_count"`
}

type AttendanceStats struct {
	TotalDays   int64 `db:"total_days" json:"total_days"`
	PresentDays int64 `db:"present_days" json:"present_days"`
	AbsentDays  int64 `db:"absent_days" json:"absent_days"`
	LateDays    int64 `db:"late_days" json:"late_days"`
}

type AttendanceWithUser struct {
	models.Attendance
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
}

const attendanceColumns = `a.id, a.user_id, to_char(a.date, 'YYYY-MM-DD') AS date, a.status, a.marked_by, a.created_at`

func NewAttendanceStore(db DB) *AttendanceStore {
	return &AttendanceStore{db: db}
}

// Mark upserts the record for (user, date) and reports whether a new row was inserted.
func (s *AttendanceStore) Mark(ctx context.Context, tx Getter, id, userID, date, status, markedBy string) (bool, error) {
	var inserted bool
	err := tx.GetContext(ctx, &inserted, `
		INSERT INTO attendance (id, user_id, date, status, marked_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date)
		DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`, id, userID, date, status, markedBy)
	return inserted, err
}

func (s *AttendanceStore) Delete(ctx context.Context, tx Execer, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// ListByUser filters on [from, to] only when both bounds are set.
func (s *AttendanceStore) ListByUser(ctx context.Context, userID, from, to string, limit int) ([]models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance a WHERE a.user_id = $1`
	args := []any{userID}
	if from != "" && to != "" {
		query += ` AND a.date BETWEEN $2 AND $3`
		args = append(args, from, to)
	}
	query += fmt.Sprintf(` ORDER BY a.date DESC LIMIT $%d`, len(args)+1)
	args = append(args, clampLimit(limit, 30, 366))

	var rows []models.Attendance
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AttendanceStore) ListByDate(ctx context.Context, date string) ([]AttendanceWithUser, error) {
	var rows []AttendanceWithUser
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+attendanceColumns+`, u.username, u.full_name
		FROM attendance a
		JOIN users u ON u.id = a.user_id
		WHERE a.date = $1
		ORDER BY u.full_name, u.username
	`, date)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountPresentByStudent returns every student, with zero counts included, ordered by username.
func (s *AttendanceStore) CountPresentByStudent(ctx context.Context, from, to string) ([]StudentAttendance, error) {
	var rows []StudentAttendance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.username, COUNT(a.id) AS attendance_count
		FROM users u
		LEFT JOIN attendance a ON a.user_id = u.id
		  AND a.date BETWEEN $1 AND $2
		  AND a.status = 'present'
		WHERE u.role = 'student'
		GROUP BY u.id, u.username
		ORDER BY u.username
	`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AttendanceStore) Stats(ctx context.Context, userID, from, to string) (AttendanceStats, error) {
	query := `
		SELECT COUNT(*) AS total_days,
		       COUNT(*) FILTER (WHERE status = 'present') AS present_days,
		       COUNT(*) FILTER (WHERE status = 'absent') AS absent_days,
		       COUNT(*) FILTER (WHERE status = 'late') AS late_days
		FROM attendance
		WHERE user_id = $1`
	args := []any{userID}
	if from != "" && to != "" {
		query += ` AND date BETWEEN $2 AND $3`
		args = append(args, from, to)
	}
	var row AttendanceStats
	err := s.db.GetContext(ctx, &row, query, args...)
	return row, err
}
