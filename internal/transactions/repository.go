package transactions

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/db"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// ListFilters narrows statement listings.
type ListFilters struct {
	Page     int
	Limit    int
	MemberID int64
	Kind     *Kind
}

// Repository defines persistence operations for savings transactions.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Transaction, int, error)
	// Post atomically adjusts the member's savings balance and records the
	// movement. delta is negative for withdrawals; a withdrawal that would
	// take the balance below zero fails with shared.ErrInsufficientFunds.
	Post(ctx context.Context, memberID int64, kind Kind, amount, delta int64, reference string) (*Transaction, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	query := `SELECT id, member_id, kind, amount, reference, balance_after, created_at FROM savings_transactions WHERE member_id = $1`
	countQuery := `SELECT COUNT(*) FROM savings_transactions WHERE member_id = $1`
	args := []any{filters.MemberID}
	argCount := 1

	if filters.Kind != nil {
		argCount++
		clause := ` AND kind = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Kind)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.MemberID, &t.Kind, &t.Amount, &t.Reference, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}

func (r *repository) Post(ctx context.Context, memberID int64, kind Kind, amount, delta int64, reference string) (*Transaction, error) {
	var posted Transaction
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var balance int64
		err := tx.QueryRow(ctx, `SELECT savings_balance FROM members WHERE id = $1 FOR UPDATE`, memberID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}

		newBalance := balance + delta
		if newBalance < 0 {
			return shared.ErrInsufficientFunds
		}

		if _, err := tx.Exec(ctx, `UPDATE members SET savings_balance = $2, updated_at = NOW() WHERE id = $1`, memberID, newBalance); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO savings_transactions (member_id, kind, amount, reference, balance_after, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id, member_id, kind, amount, reference, balance_after, created_at`,
			memberID, kind, amount, reference, newBalance)
		return row.Scan(&posted.ID, &posted.MemberID, &posted.Kind, &posted.Amount, &posted.Reference, &posted.BalanceAfter, &posted.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &posted, nil
}
