package repository

import (
	"context"

	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
)

type BusScheduleRepository interface {
	Create(ctx context.Context, schedule *model.BusSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.BusSchedule, error)
	// List returns schedules by departure time; an empty routeType lists all.
	List(ctx context.Context, routeType model.RouteType) ([]model.BusSchedule, error)
}

type BusBookingRepository interface {
	Create(ctx context.Context, booking *model.BusBooking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.BusBooking, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.BusBooking, error)
	OccupiedSeats(ctx context.Context, scheduleID uuid.UUID) ([]int, error)
	CountConfirmed(ctx context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID]int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
}
