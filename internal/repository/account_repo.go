package repository

import (
	"context"

	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
}
