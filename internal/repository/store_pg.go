package repository

import (
	"context"

	"gorm.io/gorm"
)

type pgStore struct {
	db *gorm.DB
}

func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Accounts() AccountRepository             { return NewPGAccountRepository(s.db) }
func (s *pgStore) Guests() GuestRepository                 { return NewPGGuestRepository(s.db) }
func (s *pgStore) RSVPHistory() RSVPHistoryRepository      { return NewPGRSVPHistoryRepository(s.db) }
func (s *pgStore) Communications() CommunicationRepository { return NewPGCommunicationRepository(s.db) }
func (s *pgStore) Schedules() BusScheduleRepository        { return NewPGBusScheduleRepository(s.db) }
func (s *pgStore) Bookings() BusBookingRepository          { return NewPGBusBookingRepository(s.db) }

func (s *pgStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}
