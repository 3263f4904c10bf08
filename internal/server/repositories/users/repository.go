package users

import (
	"context"

	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUserName(ctx context.Context, userName string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	UpdateExamStreak(ctx context.Context, id string, streak int) error
}
