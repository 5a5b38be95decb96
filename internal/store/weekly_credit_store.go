package store

import (
	"context"
	"time"
)

type WeeklyCreditStore struct {
	db DB
}

type WeeklyCreditInput struct {
	ID              string
	UserID          string
	WeekStart       string
	WeekEnd         string
	CoinsCredited   int64
	AttendanceCount int64
}

type WeeklyCreditRow struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Username        string    `db:"username" json:"username"`
	WeekStartDate   string    `db:"week_start_date" json:"week_start_date"`
	WeekEndDate     string    `db:"week_end_date" json:"week_end_date"`
	CoinsCredited   int64     `db:"coins_credited" json:"coins_credited"`
	AttendanceCount int64     `db:"attendance_count" json:"attendance_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

func NewWeeklyCreditStore(db DB) *WeeklyCreditStore {
	return &WeeklyCreditStore{db: db}
}

func (s *WeeklyCreditStore) Exists(ctx context.Context, tx Getter, userID, weekStart string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM weekly_credits WHERE user_id = $1 AND week_start_date = $2
		)
	`, userID, weekStart)
	return exists, err
}

func (s *WeeklyCreditStore) Create(ctx context.Context, tx Execer, input WeeklyCreditInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO weekly_credits (id, user_id, week_start_date, week_end_date, coins_credited, attendance_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.UserID, input.WeekStart, input.WeekEnd, input.CoinsCredited, input.AttendanceCount)
	return err
}

// List returns credits newest week first; an empty userID lists every account.
func (s *WeeklyCreditStore) List(ctx context.Context, userID string, limit int) ([]WeeklyCreditRow, error) {
	var rows []WeeklyCreditRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT wc.id, wc.user_id, u.username,
		       to_char(wc.week_start_date, 'YYYY-MM-DD') AS week_start_date,
		       to_char(wc.week_end_date, 'YYYY-MM-DD') AS week_end_date,
		       wc.coins_credited, wc.attendance_count, wc.created_at
		FROM weekly_credits wc
		JOIN users u ON u.id = wc.user_id
		WHERE ($1 = '' OR wc.user_id::text = $1)
		ORDER BY wc.week_start_date DESC, u.username
		LIMIT $2
	`, userID, clampLimit(limit, 50, 1000))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
