package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wedding/guesthub/internal/model"
)

type pgBusScheduleRepository struct {
	db *gorm.DB
}

func NewPGBusScheduleRepository(db *gorm.DB) BusScheduleRepository {
	return &pgBusScheduleRepository{db: db}
}

func (r *pgBusScheduleRepository) Create(ctx context.Context, schedule *model.BusSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *pgBusScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BusSchedule, error) {
	var schedule model.BusSchedule
	if err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *pgBusScheduleRepository) List(ctx context.Context, routeType model.RouteType) ([]model.BusSchedule, error) {
	q := r.db.WithContext(ctx).Model(&model.BusSchedule{})
	if routeType != "" {
		q = q.Where("route_type = ?", routeType)
	}
	var schedules []model.BusSchedule
	err := q.Order("departure_date_time ASC").Find(&schedules).Error
	return schedules, err
}

type pgBusBookingRepository struct {
	db *gorm.DB
}

func NewPGBusBookingRepository(db *gorm.DB) BusBookingRepository {
	return &pgBusBookingRepository{db: db}
}

func (r *pgBusBookingRepository) Create(ctx context.Context, booking *model.BusBooking) error {
	return r.db.WithContext(ctx).Omit("Schedule").Create(booking).Error
}

func (r *pgBusBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BusBooking, error) {
	var booking model.BusBooking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *pgBusBookingRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.BusBooking, error) {
	var bookings []model.BusBooking
	err := r.db.WithContext(ctx).
		Preload("Schedule").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *pgBusBookingRepository) OccupiedSeats(ctx context.Context, scheduleID uuid.UUID) ([]int, error) {
	var seats []int
	err := r.db.WithContext(ctx).
		Model(&model.BusBooking{}).
		Where("schedule_id = ? AND status = ?", scheduleID, model.BookingStatusConfirmed).
		Pluck("seat_number", &seats).Error
	return seats, err
}

func (r *pgBusBookingRepository) CountConfirmed(ctx context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(scheduleIDs))
	if len(scheduleIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ScheduleID uuid.UUID
		N          int
	}
	err := r.db.WithContext(ctx).
		Model(&model.BusBooking{}).
		Select("schedule_id, COUNT(*) AS n").
		Where("schedule_id IN ? AND status = ?", scheduleIDs, model.BookingStatusConfirmed).
		Group("schedule_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ScheduleID] = row.N
	}
	return counts, nil
}

func (r *pgBusBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.BusBooking{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
