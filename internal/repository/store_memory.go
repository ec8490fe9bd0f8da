package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wedding/guesthub/internal/model"
)

type memoryData struct {
	seq       int64
	accounts  map[uuid.UUID]model.Account
	guests    map[uuid.UUID]model.Guest
	guestSeq  map[uuid.UUID]int64
	history   []model.RSVPHistory
	comms     []model.GuestCommunication
	schedules map[uuid.UUID]model.BusSchedule
	bookings  map[uuid.UUID]model.BusBooking
}

func newMemoryData() *memoryData {
	return &memoryData{
		accounts:  make(map[uuid.UUID]model.Account),
		guests:    make(map[uuid.UUID]model.Guest),
		guestSeq:  make(map[uuid.UUID]int64),
		schedules: make(map[uuid.UUID]model.BusSchedule),
		bookings:  make(map[uuid.UUID]model.BusBooking),
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	c.seq = d.seq
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.guests {
		c.guests[k] = cloneGuest(v)
	}
	for k, v := range d.guestSeq {
		c.guestSeq[k] = v
	}
	c.history = append([]model.RSVPHistory(nil), d.history...)
	c.comms = append([]model.GuestCommunication(nil), d.comms...)
	for k, v := range d.schedules {
		c.schedules[k] = v
	}
	for k, v := range d.bookings {
		v.PassengerNames = v.PassengerNames.Clone()
		c.bookings[k] = v
	}
	return c
}

func cloneGuest(g model.Guest) model.Guest {
	g.DietaryNeeds = g.DietaryNeeds.Clone()
	g.Allergies = g.Allergies.Clone()
	if g.UserID != nil {
		id := *g.UserID
		g.UserID = &id
	}
	return g
}

// memoryStore keeps all relations in process memory. It mirrors the unique
// indexes created by model.AutoMigrate so callers observe the same
// gorm.ErrDuplicatedKey and gorm.ErrRecordNotFound errors as with Postgres.
type memoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
}

func NewMemoryStore() Store {
	return &memoryStore{mu: &sync.Mutex{}, data: newMemoryData()}
}

func (s *memoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memoryStore) Accounts() AccountRepository             { return &memoryAccountRepository{s} }
func (s *memoryStore) Guests() GuestRepository                 { return &memoryGuestRepository{s} }
func (s *memoryStore) RSVPHistory() RSVPHistoryRepository      { return &memoryHistoryRepository{s} }
func (s *memoryStore) Communications() CommunicationRepository { return &memoryCommunicationRepository{s} }
func (s *memoryStore) Schedules() BusScheduleRepository        { return &memoryScheduleRepository{s} }
func (s *memoryStore) Bookings() BusBookingRepository          { return &memoryBookingRepository{s} }

// Transaction runs fn against a private copy and swaps it in on success.
// Nested calls join the outer transaction.
func (s *memoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.data.clone()
	if err := fn(&memoryStore{mu: s.mu, data: draft, inTx: true}); err != nil {
		return err
	}
	*s.data = *draft
	return nil
}

// --- accounts ---

type memoryAccountRepository struct{ s *memoryStore }

func (r *memoryAccountRepository) Create(_ context.Context, account *model.Account) error {
	defer r.s.lock()()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if _, ok := r.s.data.accounts[account.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	r.s.data.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccountRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	defer r.s.lock()()
	account, ok := r.s.data.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &account, nil
}

func (r *memoryAccountRepository) List(_ context.Context) ([]model.Account, error) {
	defer r.s.lock()()
	accounts := make([]model.Account, 0, len(r.s.data.accounts))
	for _, a := range r.s.data.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// --- guests ---

type memoryGuestRepository struct{ s *memoryStore }

// activeLinkTaken reports whether another active guest carries userID.
func (r *memoryGuestRepository) activeLinkTaken(userID uuid.UUID, except uuid.UUID) bool {
	for id, g := range r.s.data.guests {
		if id == except || g.IsArchived || g.UserID == nil {
			continue
		}
		if *g.UserID == userID {
			return true
		}
	}
	return false
}

func (r *memoryGuestRepository) Create(_ context.Context, guest *model.Guest) error {
	defer r.s.lock()()
	if err := guest.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := r.s.data.guests[guest.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if guest.UserID != nil && !guest.IsArchived && r.activeLinkTaken(*guest.UserID, guest.ID) {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	if guest.CreatedAt.IsZero() {
		guest.CreatedAt = now
	}
	guest.UpdatedAt = now
	r.s.data.seq++
	r.s.data.guestSeq[guest.ID] = r.s.data.seq
	r.s.data.guests[guest.ID] = cloneGuest(*guest)
	return nil
}

func (r *memoryGuestRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Guest, error) {
	defer r.s.lock()()
	g, ok := r.s.data.guests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	g = cloneGuest(g)
	return &g, nil
}

func (r *memoryGuestRepository) GetActiveByUserID(_ context.Context, userID uuid.UUID) (*model.Guest, error) {
	defer r.s.lock()()
	for _, g := range r.s.data.guests {
		if !g.IsArchived && g.UserID != nil && *g.UserID == userID {
			g = cloneGuest(g)
			return &g, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryGuestRepository) List(_ context.Context, filter GuestFilter) ([]model.Guest, error) {
	defer r.s.lock()()
	guests := make([]model.Guest, 0, len(r.s.data.guests))
	for _, g := range r.s.data.guests {
		if !filter.IncludeArchived && g.IsArchived {
			continue
		}
		if filter.LinkedOnly && g.UserID == nil {
			continue
		}
		if filter.Status != "" && g.RSVPStatus != filter.Status {
			continue
		}
		guests = append(guests, cloneGuest(g))
	}
	seq := r.s.data.guestSeq
	sort.Slice(guests, func(i, j int) bool {
		if !guests[i].CreatedAt.Equal(guests[j].CreatedAt) {
			return guests[i].CreatedAt.After(guests[j].CreatedAt)
		}
		return seq[guests[i].ID] > seq[guests[j].ID]
	})
	return guests, nil
}

func (r *memoryGuestRepository) Update(_ context.Context, guest *model.Guest) error {
	defer r.s.lock()()
	if _, ok := r.s.data.guests[guest.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if guest.UserID != nil && !guest.IsArchived && r.activeLinkTaken(*guest.UserID, guest.ID) {
		return gorm.ErrDuplicatedKey
	}
	guest.UpdatedAt = time.Now()
	r.s.data.guests[guest.ID] = cloneGuest(*guest)
	return nil
}

func (r *memoryGuestRepository) LinkAccount(_ context.Context, guestID, userID uuid.UUID) (bool, error) {
	defer r.s.lock()()
	g, ok := r.s.data.guests[guestID]
	if !ok || r.activeLinkTaken(userID, guestID) {
		return false, nil
	}
	id := userID
	g.UserID = &id
	g.UpdatedAt = time.Now()
	r.s.data.guests[guestID] = g
	return true, nil
}

func (r *memoryGuestRepository) UnlinkAccount(_ context.Context, guestID uuid.UUID) error {
	defer r.s.lock()()
	g, ok := r.s.data.guests[guestID]
	if !ok {
		return nil
	}
	g.UserID = nil
	g.UpdatedAt = time.Now()
	r.s.data.guests[guestID] = g
	return nil
}

func (r *memoryGuestRepository) Archive(_ context.Context, ids []uuid.UUID, reason string, at time.Time) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, id := range ids {
		g, ok := r.s.data.guests[id]
		if !ok || g.IsArchived {
			continue
		}
		archivedAt := at
		g.IsArchived = true
		g.ArchivedAt = &archivedAt
		g.ArchiveReason = reason
		g.UpdatedAt = time.Now()
		r.s.data.guests[id] = g
		n++
	}
	return n, nil
}

func (r *memoryGuestRepository) Restore(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	g, ok := r.s.data.guests[id]
	if !ok || !g.IsArchived {
		return nil
	}
	if g.UserID != nil && r.activeLinkTaken(*g.UserID, id) {
		return gorm.ErrDuplicatedKey
	}
	g.IsArchived = false
	g.ArchivedAt = nil
	g.ArchiveReason = ""
	g.UpdatedAt = time.Now()
	r.s.data.guests[id] = g
	return nil
}

func (r *memoryGuestRepository) CountByIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	defer r.s.lock()()
	seen := make(map[uuid.UUID]struct{}, len(ids))
	var n int64
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := r.s.data.guests[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r *memoryGuestRepository) ListLinkedUserIDs(_ context.Context) ([]uuid.UUID, error) {
	defer r.s.lock()()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, g := range r.s.data.guests {
		if g.UserID == nil {
			continue
		}
		if _, ok := seen[*g.UserID]; ok {
			continue
		}
		seen[*g.UserID] = struct{}{}
		ids = append(ids, *g.UserID)
	}
	return ids, nil
}

// --- audit trails ---

type memoryHistoryRepository struct{ s *memoryStore }

func (r *memoryHistoryRepository) Append(_ context.Context, entry *model.RSVPHistory) error {
	defer r.s.lock()()
	if err := entry.BeforeCreate(nil); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.s.data.history = append(r.s.data.history, *entry)
	return nil
}

func (r *memoryHistoryRepository) ListByGuest(_ context.Context, guestID uuid.UUID) ([]model.RSVPHistory, error) {
	defer r.s.lock()()
	var entries []model.RSVPHistory
	for _, e := range r.s.data.history {
		if e.GuestID == guestID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

type memoryCommunicationRepository struct{ s *memoryStore }

func (r *memoryCommunicationRepository) Append(_ context.Context, entry *model.GuestCommunication) error {
	defer r.s.lock()()
	if err := entry.BeforeCreate(nil); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.s.data.comms = append(r.s.data.comms, *entry)
	return nil
}

func (r *memoryCommunicationRepository) ListByGuest(_ context.Context, guestID uuid.UUID) ([]model.GuestCommunication, error) {
	defer r.s.lock()()
	var entries []model.GuestCommunication
	for i := len(r.s.data.comms) - 1; i >= 0; i-- {
		if e := r.s.data.comms[i]; e.GuestID == guestID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// --- transport ---

type memoryScheduleRepository struct{ s *memoryStore }

func (r *memoryScheduleRepository) Create(_ context.Context, schedule *model.BusSchedule) error {
	defer r.s.lock()()
	if err := schedule.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := r.s.data.schedules[schedule.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	r.s.data.schedules[schedule.ID] = *schedule
	return nil
}

func (r *memoryScheduleRepository) GetByID(_ context.Context, id uuid.UUID) (*model.BusSchedule, error) {
	defer r.s.lock()()
	schedule, ok := r.s.data.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &schedule, nil
}

func (r *memoryScheduleRepository) List(_ context.Context, routeType model.RouteType) ([]model.BusSchedule, error) {
	defer r.s.lock()()
	schedules := make([]model.BusSchedule, 0, len(r.s.data.schedules))
	for _, s := range r.s.data.schedules {
		if routeType != "" && s.RouteType != routeType {
			continue
		}
		schedules = append(schedules, s)
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].DepartureDateTime.Before(schedules[j].DepartureDateTime)
	})
	return schedules, nil
}

type memoryBookingRepository struct{ s *memoryStore }

func (r *memoryBookingRepository) seatTaken(scheduleID uuid.UUID, seat int, except uuid.UUID) bool {
	for id, b := range r.s.data.bookings {
		if id == except || b.Status != model.BookingStatusConfirmed {
			continue
		}
		if b.ScheduleID == scheduleID && b.SeatNumber == seat {
			return true
		}
	}
	return false
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.BusBooking) error {
	defer r.s.lock()()
	if err := booking.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := r.s.data.bookings[booking.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if booking.Status == model.BookingStatusConfirmed && r.seatTaken(booking.ScheduleID, booking.SeatNumber, booking.ID) {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	stored := *booking
	stored.Schedule = nil
	stored.PassengerNames = booking.PassengerNames.Clone()
	r.s.data.bookings[booking.ID] = stored
	return nil
}

func (r *memoryBookingRepository) GetByID(_ context.Context, id uuid.UUID) (*model.BusBooking, error) {
	defer r.s.lock()()
	booking, ok := r.s.data.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &booking, nil
}

func (r *memoryBookingRepository) ListByAccount(_ context.Context, accountID uuid.UUID) ([]model.BusBooking, error) {
	defer r.s.lock()()
	var bookings []model.BusBooking
	for _, b := range r.s.data.bookings {
		if b.AccountID != accountID {
			continue
		}
		if s, ok := r.s.data.schedules[b.ScheduleID]; ok {
			schedule := s
			b.Schedule = &schedule
		}
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (r *memoryBookingRepository) OccupiedSeats(_ context.Context, scheduleID uuid.UUID) ([]int, error) {
	defer r.s.lock()()
	var seats []int
	for _, b := range r.s.data.bookings {
		if b.ScheduleID == scheduleID && b.Status == model.BookingStatusConfirmed {
			seats = append(seats, b.SeatNumber)
		}
	}
	return seats, nil
}

func (r *memoryBookingRepository) CountConfirmed(_ context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	defer r.s.lock()()
	counts := make(map[uuid.UUID]int, len(scheduleIDs))
	wanted := make(map[uuid.UUID]struct{}, len(scheduleIDs))
	for _, id := range scheduleIDs {
		wanted[id] = struct{}{}
	}
	for _, b := range r.s.data.bookings {
		if _, ok := wanted[b.ScheduleID]; ok && b.Status == model.BookingStatusConfirmed {
			counts[b.ScheduleID]++
		}
	}
	return counts, nil
}

func (r *memoryBookingRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.BookingStatus) error {
	defer r.s.lock()()
	b, ok := r.s.data.bookings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status == model.BookingStatusConfirmed && b.Status != status && r.seatTaken(b.ScheduleID, b.SeatNumber, id) {
		return gorm.ErrDuplicatedKey
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	r.s.data.bookings[id] = b
	return nil
}
