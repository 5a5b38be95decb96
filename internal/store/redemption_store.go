package store

import (
	"context"

	"campuscoin/internal/models"
)

type RedemptionStore struct {
	db DB
}

type RedemptionWithUser struct {
	models.Redemption
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
}

const redemptionColumns = `r.id, r.user_id, r.coins_redeemed, r.redemption_type, r.amount_credited,
		       r.status, r.notes, r.requested_at, r.processed_at, r.processed_by`

func NewRedemptionStore(db DB) *RedemptionStore {
	return &RedemptionStore{db: db}
}

func (s *RedemptionStore) Create(ctx context.Context, tx Execer, r models.Redemption) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO redemptions (id, user_id, coins_redeemed, redemption_type, amount_credited, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.UserID, r.CoinsRedeemed, r.RedemptionType, r.AmountCredited, r.Status, r.Notes)
	return err
}

func (s *RedemptionStore) GetByID(ctx context.Context, id string) (models.Redemption, error) {
	var row models.Redemption
	err := s.db.GetContext(ctx, &row, `SELECT `+redemptionColumns+` FROM redemptions r WHERE r.id = $1`, id)
	return row, err
}

func (s *RedemptionStore) GetForUpdate(ctx context.Context, tx Getter, id string) (models.Redemption, error) {
	var row models.Redemption
	err := tx.GetContext(ctx, &row, `SELECT `+redemptionColumns+` FROM redemptions r WHERE r.id = $1 FOR UPDATE`, id)
	return row, err
}

// MarkProcessed only moves a pending row; a second transition affects nothing.
func (s *RedemptionStore) MarkProcessed(ctx context.Context, tx Execer, id, status, adminID, notes string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE redemptions
		SET status = $1, processed_at = NOW(), processed_by = $2, notes = $3
		WHERE id = $4 AND status = 'pending'
	`, status, adminID, notes, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (s *RedemptionStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Redemption, error) {
	var rows []models.Redemption
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+redemptionColumns+`
		FROM redemptions r
		WHERE r.user_id = $1
		ORDER BY r.requested_at DESC
		LIMIT $2
	`, userID, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns redemptions in request order; an empty status lists all.
func (s *RedemptionStore) List(ctx context.Context, status string, limit int) ([]RedemptionWithUser, error) {
	var rows []RedemptionWithUser
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+redemptionColumns+`, u.username, u.full_name
		FROM redemptions r
		JOIN users u ON u.id = r.user_id
		WHERE ($1 = '' OR r.status = $1)
		ORDER BY r.requested_at DESC
		LIMIT $2
	`, status, clampLimit(limit, 100, 1000))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RedemptionStore) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM redemptions WHERE status = 'pending'`)
	return count, err
}
