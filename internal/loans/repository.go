package loans

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/db"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// ListFilters narrows loan listings.
type ListFilters struct {
	Page     int
	Limit    int
	MemberID *int64
	Status   *Status
}

// Repository defines persistence operations for loans.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Loan, int, error)
	Get(ctx context.Context, id int64) (*Loan, error)
	Create(ctx context.Context, l Loan) (*Loan, error)
	UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error
	// AddRepayment records the payment, applies it to the running total and
	// closes the loan once the principal is covered, all in one transaction.
	// Only approved loans accept repayments.
	AddRepayment(ctx context.Context, rep Repayment) (*Repayment, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const loanColumns = `id, member_id, amount, term_months, purpose, status, amount_repaid, approved_by, created_at, updated_at`

func scanLoan(row pgx.Row) (*Loan, error) {
	var l Loan
	err := row.Scan(&l.ID, &l.MemberID, &l.Amount, &l.TermMonths, &l.Purpose, &l.Status, &l.AmountRepaid, &l.ApprovedBy, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Loan, int, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM loans WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.MemberID != nil {
		argCount++
		clause := ` AND member_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.MemberID)
	}
	if filters.Status != nil {
		argCount++
		clause := ` AND status = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
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

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Loan
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.MemberID, &l.Amount, &l.TermMonths, &l.Purpose, &l.Status, &l.AmountRepaid, &l.ApprovedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, l)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Loan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	return scanLoan(row)
}

func (r *repository) Create(ctx context.Context, l Loan) (*Loan, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO loans (member_id, amount, term_months, purpose, status, amount_repaid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
		RETURNING `+loanColumns,
		l.MemberID, l.Amount, l.TermMonths, l.Purpose, l.Status)
	return scanLoan(row)
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE loans SET status = $2, approved_by = $3, updated_at = NOW() WHERE id = $1`, id, status, approvedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AddRepayment(ctx context.Context, rep Repayment) (*Repayment, error) {
	var created Repayment
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var amount, repaid int64
		var status Status
		row := tx.QueryRow(ctx, `SELECT amount, amount_repaid, status FROM loans WHERE id = $1 FOR UPDATE`, rep.LoanID)
		if err := row.Scan(&amount, &repaid, &status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if status != StatusApproved {
			return fmt.Errorf("%w: loan is %s", ErrInvalidTransition, status)
		}

		row = tx.QueryRow(ctx, `
			INSERT INTO loan_repayments (loan_id, amount, reference, created_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id, loan_id, amount, reference, created_at`,
			rep.LoanID, rep.Amount, rep.Reference)
		if err := row.Scan(&created.ID, &created.LoanID, &created.Amount, &created.Reference, &created.CreatedAt); err != nil {
			return err
		}

		repaid += rep.Amount
		status = StatusApproved
		if repaid >= amount {
			status = StatusClosed
		}
		_, err := tx.Exec(ctx, `UPDATE loans SET amount_repaid = $2, status = $3, updated_at = NOW() WHERE id = $1`, rep.LoanID, repaid, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
