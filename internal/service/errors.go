package service

import "errors"

var (
	ErrGuestNotFound     = errors.New("guest not found")
	ErrScheduleNotFound  = errors.New("bus schedule not found")
	ErrBookingNotFound   = errors.New("bus booking not found")
	ErrInvalidRSVPStatus = errors.New("rsvp status must be confirmed or declined")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyLinked     = errors.New("account is already linked to another active guest")
	ErrCapacityExceeded  = errors.New("no free seat on this schedule")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrUnauthorized      = errors.New("admin privilege required")
	ErrSyncInProgress    = errors.New("account sync already running")
)

// IsNotFound reports whether err is one of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGuestNotFound) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}
