package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

// Repository persists login sessions.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, token string, at time.Time) error
}
