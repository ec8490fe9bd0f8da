package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wedding/guesthub/internal/model"
)

func TestMemoryTransactionRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	g := &model.Guest{Email: "a@example.com"}
	if err := store.Guests().Create(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		loaded, err := tx.Guests().GetByID(ctx, g.ID)
		if err != nil {
			return err
		}
		loaded.RSVPStatus = model.RSVPStatusConfirmed
		loaded.DietaryNeeds = model.StringSlice{"vegan"}
		if err := tx.Guests().Update(ctx, loaded); err != nil {
			return err
		}
		if err := tx.Guests().Create(ctx, &model.Guest{Email: "b@example.com"}); err != nil {
			return err
		}
		if err := tx.RSVPHistory().Append(ctx, &model.RSVPHistory{GuestID: g.ID, NewStatus: model.RSVPStatusConfirmed}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, err := store.Guests().GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RSVPStatus != model.RSVPStatusPending || len(got.DietaryNeeds) != 0 {
		t.Fatalf("rolled back guest = %+v", got)
	}
	all, _ := store.Guests().List(ctx, GuestFilter{IncludeArchived: true})
	if len(all) != 1 {
		t.Fatalf("guests = %d, want 1", len(all))
	}
	history, _ := store.RSVPHistory().ListByGuest(ctx, g.ID)
	if len(history) != 0 {
		t.Fatalf("history = %d entries, want 0", len(history))
	}
}

func TestMemoryTransactionCommits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var id uuid.UUID
	err := store.Transaction(ctx, func(tx Store) error {
		g := &model.Guest{Email: "a@example.com"}
		if err := tx.Guests().Create(ctx, g); err != nil {
			return err
		}
		id = g.ID
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if _, err := store.Guests().GetByID(ctx, id); err != nil {
		t.Fatalf("committed guest missing: %v", err)
	}
}

func TestMemoryGuestReadsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	g := &model.Guest{Email: "a@example.com", DietaryNeeds: model.StringSlice{"vegan"}}
	if err := store.Guests().Create(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}
	g.DietaryNeeds[0] = "changed"

	got, _ := store.Guests().GetByID(ctx, g.ID)
	got.DietaryNeeds[0] = "changed again"

	again, _ := store.Guests().GetByID(ctx, g.ID)
	if again.DietaryNeeds[0] != "vegan" {
		t.Fatalf("stored slice aliased: %v", again.DietaryNeeds)
	}
}

func TestMemoryLinkIsConditional(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a := &model.Guest{Email: "a@example.com"}
	b := &model.Guest{Email: "b@example.com"}
	for _, g := range []*model.Guest{a, b} {
		if err := store.Guests().Create(ctx, g); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	account := uuid.New()

	if ok, err := store.Guests().LinkAccount(ctx, a.ID, account); err != nil || !ok {
		t.Fatalf("link a: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Guests().LinkAccount(ctx, b.ID, account); err != nil || ok {
		t.Fatalf("link b: ok=%v err=%v, want blocked", ok, err)
	}

	loaded, _ := store.Guests().GetByID(ctx, b.ID)
	loaded.UserID = &account
	if err := store.Guests().Update(ctx, loaded); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("update bypassing link: err = %v, want ErrDuplicatedKey", err)
	}

	if n, err := store.Guests().Archive(ctx, []uuid.UUID{a.ID}, "gone", time.Now()); err != nil || n != 1 {
		t.Fatalf("archive: n=%d err=%v", n, err)
	}
	if ok, err := store.Guests().LinkAccount(ctx, b.ID, account); err != nil || !ok {
		t.Fatalf("link b after archive: ok=%v err=%v", ok, err)
	}
	if err := store.Guests().Restore(ctx, a.ID); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("restore a: err = %v, want ErrDuplicatedKey", err)
	}

	ids, err := store.Guests().ListLinkedUserIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != account {
		t.Fatalf("linked ids = %v err=%v", ids, err)
	}
}

func TestMemoryBookingSeatUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sched := &model.BusSchedule{RouteType: model.RouteTypeArrival, Location: "Station", MaxCapacity: 10}
	if err := store.Schedules().Create(ctx, sched); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	first := &model.BusBooking{ScheduleID: sched.ID, AccountID: uuid.New(), SeatNumber: 3, Status: model.BookingStatusConfirmed}
	if err := store.Bookings().Create(ctx, first); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	clash := &model.BusBooking{ScheduleID: sched.ID, AccountID: uuid.New(), SeatNumber: 3, Status: model.BookingStatusConfirmed}
	if err := store.Bookings().Create(ctx, clash); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("clash: err = %v, want ErrDuplicatedKey", err)
	}

	if err := store.Bookings().UpdateStatus(ctx, first.ID, model.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := store.Bookings().Create(ctx, clash); err != nil {
		t.Fatalf("rebook cancelled seat: %v", err)
	}
	if err := store.Bookings().UpdateStatus(ctx, first.ID, model.BookingStatusConfirmed); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("reconfirm: err = %v, want ErrDuplicatedKey", err)
	}

	counts, err := store.Bookings().CountConfirmed(ctx, []uuid.UUID{sched.ID})
	if err != nil || counts[sched.ID] != 1 {
		t.Fatalf("counts = %v err=%v", counts, err)
	}
}

func TestMemoryStateStoreLocks(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "k", []byte("a"), 20*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("first setnx: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.SetNX(ctx, "k", []byte("b"), time.Second); ok {
		t.Fatal("second setnx succeeded while key held")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := s.SetNX(ctx, "k", []byte("c"), time.Second); !ok {
		t.Fatal("setnx failed after expiry")
	}
	v, _ := s.Get(ctx, "k")
	if string(v) != "c" {
		t.Fatalf("value = %q, want c", v)
	}

	if released, _ := s.Release(ctx, "k", []byte("a")); released {
		t.Fatal("released with a stale token")
	}
	if released, _ := s.Release(ctx, "k", []byte("c")); !released {
		t.Fatal("release with the current token failed")
	}
	if v, _ := s.Get(ctx, "k"); v != nil {
		t.Fatalf("value after release = %q, want nil", v)
	}
}
