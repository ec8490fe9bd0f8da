package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wedding/guesthub/internal/events"
	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/repository"
	"wedding/guesthub/pkg/metrics"
)

const (
	seatAllocationAttempts = 2
	seatLockPoll           = 25 * time.Millisecond
)

type SeatConfig struct {
	LockTTL  time.Duration
	LockWait time.Duration
}

type BookSeatsInput struct {
	ScheduleID     uuid.UUID `json:"schedule_id"`
	AccountID      uuid.UUID `json:"-"`
	PassengerNames []string  `json:"passenger_names"`
	ContactPhone   string    `json:"contact_phone"`
	Notes          string    `json:"notes"`
}

type ScheduleInput struct {
	RouteType         model.RouteType `json:"route_type" validate:"required,oneof=arrival departure"`
	DepartureDateTime time.Time       `json:"departure_date_time" validate:"required"`
	Location          string          `json:"location" validate:"required"`
	MaxCapacity       int             `json:"max_capacity" validate:"required,gt=2"`
}

type SeatService interface {
	// BookSeats allocates the first free seat on a schedule for the caller's party.
	BookSeats(ctx context.Context, input BookSeatsInput) (*model.BusBooking, error)
	ListSchedules(ctx context.Context, routeType model.RouteType) ([]model.BusSchedule, error)
	CreateSchedule(ctx context.Context, input ScheduleInput) (*model.BusSchedule, error)
	ListBookings(ctx context.Context, accountID uuid.UUID) ([]model.BusBooking, error)
	CancelBooking(ctx context.Context, accountID, bookingID uuid.UUID) (*model.BusBooking, error)
}

type seatService struct {
	store    repository.Store
	state    repository.StateStore
	notifier notifier
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	cfg      SeatConfig
}

func NewSeatService(
	store repository.Store,
	state repository.StateStore,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg SeatConfig,
) SeatService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Second
	}
	if cfg.LockWait < 0 {
		cfg.LockWait = 0
	}
	return &seatService{
		store:    store,
		state:    state,
		notifier: notifier{bus: bus, metrics: m},
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}
}

// FirstFreeSeat scans seat numbers above the reserved ones up to maxCapacity
// and returns the lowest one not in occupied.
func FirstFreeSeat(maxCapacity int, occupied []int) (int, bool) {
	taken := make(map[int]struct{}, len(occupied))
	for _, n := range occupied {
		taken[n] = struct{}{}
	}
	for seat := model.ReservedSeats + 1; seat <= maxCapacity; seat++ {
		if _, ok := taken[seat]; !ok {
			return seat, true
		}
	}
	return 0, false
}

func (s *seatService) BookSeats(ctx context.Context, input BookSeatsInput) (_ *model.BusBooking, err error) {
	ctx, span := tracer.Start(ctx, "SeatService.BookSeats")
	defer func() { endSpan(span, err) }()
	defer s.notifier.observe("book_seats", time.Now())

	if input.AccountID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	names := cleanList(input.PassengerNames)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one passenger name is required", ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("schedule.id", input.ScheduleID.String()))

	schedule, err := s.store.Schedules().GetByID(ctx, input.ScheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	release := s.acquireSeatLock(ctx, schedule.ID)
	defer release()

	for attempt := 1; attempt <= seatAllocationAttempts; attempt++ {
		occupied, err := s.store.Bookings().OccupiedSeats(ctx, schedule.ID)
		if err != nil {
			return nil, fmt.Errorf("load occupied seats: %w", err)
		}
		seat, ok := FirstFreeSeat(schedule.MaxCapacity, occupied)
		if !ok {
			break
		}

		booking := &model.BusBooking{
			ScheduleID:     schedule.ID,
			AccountID:      input.AccountID,
			SeatNumber:     seat,
			GuestCount:     len(names),
			PassengerNames: names,
			ContactPhone:   strings.TrimSpace(input.ContactPhone),
			Notes:          strings.TrimSpace(input.Notes),
			Status:         model.BookingStatusConfirmed,
		}
		err = s.store.Bookings().Create(ctx, booking)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Info("seat taken concurrently, rescanning",
				zap.String("schedule_id", schedule.ID.String()),
				zap.Int("seat", seat),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			s.metrics.SeatBookings.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("create booking: %w", err)
		}

		s.metrics.SeatBookings.WithLabelValues("confirmed").Inc()
		span.SetAttributes(attribute.Int("booking.seat", seat))
		accountID := input.AccountID
		s.notifier.emit(events.Event{
			Type:      events.TypeBookingCreated,
			AccountID: &accountID,
			Data: map[string]any{
				"booking_id":  booking.ID.String(),
				"schedule_id": schedule.ID.String(),
				"seat_number": seat,
			},
		})
		booking.Schedule = schedule
		return booking, nil
	}

	s.metrics.SeatBookings.WithLabelValues("capacity_exceeded").Inc()
	return nil, ErrCapacityExceeded
}

// acquireSeatLock serialises scans for one schedule. When the lock cannot be
// taken within LockWait the caller proceeds and relies on the unique index.
func (s *seatService) acquireSeatLock(ctx context.Context, scheduleID uuid.UUID) func() {
	key := "seat-lock:" + scheduleID.String()
	token := []byte(uuid.NewString())
	deadline := time.Now().Add(s.cfg.LockWait)

	for {
		ok, err := s.state.SetNX(ctx, key, token, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn("seat lock unavailable", zap.String("key", key), zap.Error(err))
			return func() {}
		}
		if ok {
			return func() { s.releaseSeatLock(context.WithoutCancel(ctx), key, token) }
		}
		if !time.Now().Before(deadline) {
			s.logger.Warn("seat lock wait timed out", zap.String("key", key))
			return func() {}
		}
		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(seatLockPoll):
		}
	}
}

func (s *seatService) releaseSeatLock(ctx context.Context, key string, token []byte) {
	if _, err := s.state.Release(ctx, key, token); err != nil {
		s.logger.Warn("release seat lock failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *seatService) ListSchedules(ctx context.Context, routeType model.RouteType) ([]model.BusSchedule, error) {
	schedules, err := s.store.Schedules().List(ctx, routeType)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	if len(schedules) == 0 {
		return schedules, nil
	}

	ids := make([]uuid.UUID, len(schedules))
	for i := range schedules {
		ids[i] = schedules[i].ID
	}
	counts, err := s.store.Bookings().CountConfirmed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	for i := range schedules {
		sc := &schedules[i]
		sc.CurrentBookings = counts[sc.ID]
		sc.SeatsAvailable = sc.MaxCapacity - sc.CurrentBookings
		if sc.SeatsAvailable < 0 {
			sc.SeatsAvailable = 0
		}
	}
	return schedules, nil
}

func (s *seatService) CreateSchedule(ctx context.Context, input ScheduleInput) (*model.BusSchedule, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	input.Location = strings.TrimSpace(input.Location)
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	schedule := &model.BusSchedule{
		RouteType:         input.RouteType,
		DepartureDateTime: input.DepartureDateTime.UTC(),
		Location:          input.Location,
		MaxCapacity:       input.MaxCapacity,
	}
	if err := s.store.Schedules().Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	schedule.SeatsAvailable = schedule.MaxCapacity
	return schedule, nil
}

func (s *seatService) ListBookings(ctx context.Context, accountID uuid.UUID) ([]model.BusBooking, error) {
	if accountID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	bookings, err := s.store.Bookings().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *seatService) CancelBooking(ctx context.Context, accountID, bookingID uuid.UUID) (*model.BusBooking, error) {
	if accountID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking.AccountID != accountID {
		return nil, ErrBookingNotFound
	}
	if booking.Status == model.BookingStatusCancelled {
		return booking, nil
	}

	if err := s.store.Bookings().UpdateStatus(ctx, booking.ID, model.BookingStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	booking.Status = model.BookingStatusCancelled
	s.notifier.emit(events.Event{
		Type:      events.TypeBookingCancelled,
		AccountID: &accountID,
		Data: map[string]any{
			"booking_id":  booking.ID.String(),
			"schedule_id": booking.ScheduleID.String(),
			"seat_number": booking.SeatNumber,
		},
	})
	return booking, nil
}
