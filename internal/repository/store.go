package repository

import "context"

// Store groups the repositories that share one unit of work.
// Transaction runs fn against a Store whose writes commit together or not at all.
type Store interface {
	Accounts() AccountRepository
	Guests() GuestRepository
	RSVPHistory() RSVPHistoryRepository
	Communications() CommunicationRepository
	Schedules() BusScheduleRepository
	Bookings() BusBookingRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
