package members

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// ListFilters narrows member listings.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
	Role   *shared.Role
}

// Repository defines persistence operations for member accounts.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Member, int, error)
	// FindByID loads a member excluding the password hash.
	FindByID(ctx context.Context, id int64) (*Member, error)
	// FindByEmail loads a member including the password hash, for login.
	FindByEmail(ctx context.Context, email string) (*Member, error)
	Create(ctx context.Context, m Member) (*Member, error)
	UpdateProfile(ctx context.Context, id int64, m Member) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const memberColumns = `id, first_name, last_name, email, phone_number, role, savings_balance, is_active, created_at, updated_at`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.PhoneNumber, &m.Role, &m.SavingsBalance, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Member, int, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM members WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (first_name ILIKE $` + strconv.Itoa(argCount) + ` OR last_name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Role != nil {
		argCount++
		clause := ` AND role = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Role)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY last_name, first_name`
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

	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.PhoneNumber, &m.Role, &m.SavingsBalance, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, m)
	}
	return list, total, rows.Err()
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Member, error) {
	row := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	return scanMember(row)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	row := r.db.QueryRow(ctx, `SELECT `+memberColumns+`, password_hash FROM members WHERE email = $1`, email)
	var m Member
	err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.PhoneNumber, &m.Role, &m.SavingsBalance, &m.IsActive, &m.CreatedAt, &m.UpdatedAt, &m.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) Create(ctx context.Context, m Member) (*Member, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO members (first_name, last_name, email, phone_number, role, password_hash, savings_balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, TRUE, NOW(), NOW())
		RETURNING `+memberColumns,
		m.FirstName, m.LastName, m.Email, m.PhoneNumber, m.Role, m.PasswordHash)
	created, err := scanMember(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicateEmail
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id int64, m Member) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE members SET first_name = $2, last_name = $3, phone_number = $4, updated_at = NOW()
		WHERE id = $1`,
		id, m.FirstName, m.LastName, m.PhoneNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE members SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE members SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
