package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Account{},
		&Guest{},
		&RSVPHistory{},
		&GuestCommunication{},
		&BusSchedule{},
		&BusBooking{},
	); err != nil {
		return err
	}

	// An account links to at most one active guest.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_guests_active_user_id " +
			"ON guests (user_id) WHERE user_id IS NOT NULL AND is_archived = false",
	).Error; err != nil {
		return err
	}

	// One confirmed booking per seat per schedule.
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_bus_bookings_schedule_seat " +
			"ON bus_bookings (schedule_id, seat_number) WHERE status = 'confirmed'",
	).Error
}
