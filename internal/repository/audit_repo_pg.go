package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wedding/guesthub/internal/model"
)

type pgRSVPHistoryRepository struct {
	db *gorm.DB
}

func NewPGRSVPHistoryRepository(db *gorm.DB) RSVPHistoryRepository {
	return &pgRSVPHistoryRepository{db: db}
}

func (r *pgRSVPHistoryRepository) Append(ctx context.Context, entry *model.RSVPHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *pgRSVPHistoryRepository) ListByGuest(ctx context.Context, guestID uuid.UUID) ([]model.RSVPHistory, error) {
	var entries []model.RSVPHistory
	err := r.db.WithContext(ctx).Where("guest_id = ?", guestID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

type pgCommunicationRepository struct {
	db *gorm.DB
}

func NewPGCommunicationRepository(db *gorm.DB) CommunicationRepository {
	return &pgCommunicationRepository{db: db}
}

func (r *pgCommunicationRepository) Append(ctx context.Context, entry *model.GuestCommunication) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *pgCommunicationRepository) ListByGuest(ctx context.Context, guestID uuid.UUID) ([]model.GuestCommunication, error) {
	var entries []model.GuestCommunication
	err := r.db.WithContext(ctx).Where("guest_id = ?", guestID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}
