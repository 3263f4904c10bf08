// Package sessions stores the opaque bearer tokens issued at login.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *SQLRepository) Create(ctx context.Context, session *models.Session) error {
	query :=
		`INSERT INTO sessions (token, user_id, last_used_ms)
		 VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, session.Token, session.UserID, models.ToMillis(session.LastUsed))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	query :=
		`SELECT token, user_id, last_used_ms FROM sessions
		 WHERE token = $1`

	s := &models.Session{}
	var lastUsed int64
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.UserID, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.LastUsed = models.FromMillis(lastUsed)

	return s, nil
}

// Touch records a use of the session. Touching an unknown token is not an
// error.
func (r *SQLRepository) Touch(ctx context.Context, token string, at time.Time) error {
	query :=
		`UPDATE sessions SET last_used_ms = $1
		 WHERE token = $2`

	if _, err := r.db.ExecContext(ctx, query, models.ToMillis(at), token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
