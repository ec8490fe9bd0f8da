package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wedding/guesthub/internal/model"
)

type pgAccountRepository struct {
	db *gorm.DB
}

func NewPGAccountRepository(db *gorm.DB) AccountRepository {
	return &pgAccountRepository{db: db}
}

func (r *pgAccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *pgAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *pgAccountRepository) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error
	return accounts, err
}
