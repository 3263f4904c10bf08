package challenges

import (
	"context"

	"github.com/dmitrijs2005/licensegate/internal/server/exam"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

// Repository persists the live challenge of each account; there is at most
// one per account.
type Repository interface {
	FindByUser(ctx context.Context, userID string) (*models.Challenge, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, c *models.Challenge) error
	// Acknowledge marks channel on the challenge identified by userID and
	// token. It reports false when no such challenge exists.
	Acknowledge(ctx context.Context, userID, token string, channel exam.Channel) (bool, error)
}
