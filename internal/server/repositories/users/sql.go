// Package users provides the SQL repository for accounts. The statements are
// portable between the PostgreSQL (pgx) and SQLite drivers.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts the account. A taken username yields common.ErrorAlreadyExists.
func (r *SQLRepository) Create(ctx context.Context, account *models.Account) error {
	query :=
		`INSERT INTO users (id, name, username, password_digest, exam_streak)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, account.UserName, account.PasswordDigest, account.ExamStreak)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", account.UserName, common.ErrorAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) GetByUserName(ctx context.Context, userName string) (*models.Account, error) {
	query :=
		`SELECT id, name, username, password_digest, exam_streak FROM users
		 WHERE username = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, name, username, password_digest, exam_streak FROM users
		 WHERE id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// UpdateExamStreak stores a new streak; a missing account yields
// common.ErrorNotFound.
func (r *SQLRepository) UpdateExamStreak(ctx context.Context, id string, streak int) error {
	query :=
		`UPDATE users SET exam_streak = $1
		 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, streak, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) scanOne(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Name, &a.UserName, &a.PasswordDigest, &a.ExamStreak)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
