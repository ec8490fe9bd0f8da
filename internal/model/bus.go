package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RouteType string

const (
	RouteTypeArrival   RouteType = "arrival"
	RouteTypeDeparture RouteType = "departure"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ReservedSeats is the count of leading seat numbers kept for the driver and guide.
const ReservedSeats = 2

type BusSchedule struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RouteType         RouteType `gorm:"type:varchar(16);not null;index" json:"route_type"`
	DepartureDateTime time.Time `gorm:"not null;index" json:"departure_date_time"`
	Location          string    `gorm:"type:varchar(256);not null" json:"location"`
	MaxCapacity       int       `gorm:"not null" json:"max_capacity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Derived from confirmed bookings; never persisted.
	CurrentBookings int `gorm:"-" json:"current_bookings"`
	SeatsAvailable  int `gorm:"-" json:"seats_available"`
}

func (BusSchedule) TableName() string { return "bus_schedules" }

func (s *BusSchedule) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type BusBooking struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"schedule_id"`
	AccountID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"account_id"`
	SeatNumber     int           `gorm:"not null" json:"seat_number"`
	GuestCount     int           `gorm:"not null" json:"guest_count"`
	PassengerNames StringSlice   `gorm:"type:jsonb" json:"passenger_names"`
	ContactPhone   string        `gorm:"type:varchar(64)" json:"contact_phone,omitempty"`
	Notes          string        `gorm:"type:text" json:"notes,omitempty"`
	Status         BookingStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Schedule *BusSchedule `gorm:"foreignKey:ScheduleID" json:"schedule,omitempty"`
}

func (BusBooking) TableName() string { return "bus_bookings" }

func (b *BusBooking) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
