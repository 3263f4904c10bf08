// Package challenges stores the outstanding exam challenges.
package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/server/exam"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) FindByUser(ctx context.Context, userID string) (*models.Challenge, error) {
	query :=
		`SELECT user_id, token, n, ack_fizz, ack_buzz, ack_other FROM challenges
		 WHERE user_id = $1`

	c := &models.Challenge{}
	var n int64
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&c.UserID, &c.Token, &n, &c.AckFizz, &c.AckBuzz, &c.AckOther)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n < 0 || n > 0xFFFF {
		return nil, fmt.Errorf("db error: challenge number %d out of range", n)
	}
	c.N = uint16(n)

	return c, nil
}

// DeleteByUser removes the challenge of userID and returns the number of rows
// deleted.
func (r *SQLRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM challenges WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) Create(ctx context.Context, c *models.Challenge) error {
	query :=
		`INSERT INTO challenges (user_id, token, n, ack_fizz, ack_buzz, ack_other)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, c.UserID, c.Token, int64(c.N), c.AckFizz, c.AckBuzz, c.AckOther)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Acknowledge(ctx context.Context, userID, token string, channel exam.Channel) (bool, error) {
	var column string
	switch channel {
	case exam.ChannelFizz:
		column = "ack_fizz"
	case exam.ChannelBuzz:
		column = "ack_buzz"
	case exam.ChannelOther:
		column = "ack_other"
	default:
		return false, fmt.Errorf("unknown channel %q", channel)
	}

	// column comes from the fixed set above
	query := `UPDATE challenges SET ` + column + ` = TRUE
		 WHERE user_id = $1 AND token = $2`

	res, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
