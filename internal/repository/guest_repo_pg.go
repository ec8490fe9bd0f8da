package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wedding/guesthub/internal/model"
)

type pgGuestRepository struct {
	db *gorm.DB
}

func NewPGGuestRepository(db *gorm.DB) GuestRepository {
	return &pgGuestRepository{db: db}
}

func (r *pgGuestRepository) Create(ctx context.Context, guest *model.Guest) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

func (r *pgGuestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Guest, error) {
	var guest model.Guest
	if err := r.db.WithContext(ctx).First(&guest, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *pgGuestRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*model.Guest, error) {
	var guest model.Guest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_archived = ?", userID, false).
		First(&guest).Error
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *pgGuestRepository) List(ctx context.Context, filter GuestFilter) ([]model.Guest, error) {
	q := r.db.WithContext(ctx).Model(&model.Guest{})
	if !filter.IncludeArchived {
		q = q.Where("is_archived = ?", false)
	}
	if filter.LinkedOnly {
		q = q.Where("user_id IS NOT NULL")
	}
	if filter.Status != "" {
		q = q.Where("rsvp_status = ?", filter.Status)
	}
	var guests []model.Guest
	if err := q.Order("created_at DESC").Find(&guests).Error; err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *pgGuestRepository) Update(ctx context.Context, guest *model.Guest) error {
	return r.db.WithContext(ctx).Save(guest).Error
}

func (r *pgGuestRepository) LinkAccount(ctx context.Context, guestID, userID uuid.UUID) (bool, error) {
	taken := r.db.Model(&model.Guest{}).
		Select("1").
		Where("user_id = ? AND is_archived = ? AND id <> ?", userID, false, guestID)

	res := r.db.WithContext(ctx).
		Model(&model.Guest{}).
		Where("id = ?", guestID).
		Where("NOT EXISTS (?)", taken).
		Update("user_id", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pgGuestRepository) UnlinkAccount(ctx context.Context, guestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Guest{}).
		Where("id = ?", guestID).
		Update("user_id", nil).
		Error
}

func (r *pgGuestRepository) Archive(ctx context.Context, ids []uuid.UUID, reason string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Guest{}).
		Where("id IN ? AND is_archived = ?", ids, false).
		Updates(map[string]interface{}{
			"is_archived":    true,
			"archived_at":    at,
			"archive_reason": reason,
		})
	return res.RowsAffected, res.Error
}

func (r *pgGuestRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Guest{}).
		Where("id = ? AND is_archived = ?", id, true).
		Updates(map[string]interface{}{
			"is_archived":    false,
			"archived_at":    nil,
			"archive_reason": "",
		}).Error
}

func (r *pgGuestRepository) CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Guest{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

func (r *pgGuestRepository) ListLinkedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Guest{}).
		Where("user_id IS NOT NULL").
		Distinct().
		Pluck("user_id", &ids).Error
	return ids, err
}
