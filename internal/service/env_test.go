package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"wedding/guesthub/internal/events"
	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/repository"
	"wedding/guesthub/pkg/metrics"
)

type testEnv struct {
	store   repository.Store
	state   repository.StateStore
	bus     *events.Bus
	metrics *metrics.Metrics
	rsvp    RSVPService
	guests  GuestService
	seats   SeatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, repository.NewMemoryStore())
}

func newTestEnvWithStore(t *testing.T, store repository.Store) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	bus := events.NewBus(logger)
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	state := repository.NewMemoryStateStore()

	rsvp := NewRSVPService(store, bus, m, logger)
	seats := NewSeatService(store, state, bus, m, logger, SeatConfig{
		LockTTL:  time.Second,
		LockWait: 2 * time.Second,
	})
	return &testEnv{
		store:   store,
		state:   state,
		bus:     bus,
		metrics: m,
		rsvp:    rsvp,
		guests:  NewGuestService(store, state, rsvp, bus, m, logger),
		seats:   seats,
	}
}

func (e *testEnv) addGuest(t *testing.T, email string) *model.Guest {
	t.Helper()
	g := &model.Guest{
		FirstName:    "Test",
		LastName:     "Guest",
		DisplayName:  "Test Guest",
		Email:        email,
		RSVPStatus:   model.RSVPStatusPending,
		DietaryNeeds: model.StringSlice{},
		Allergies:    model.StringSlice{},
	}
	if err := e.store.Guests().Create(context.Background(), g); err != nil {
		t.Fatalf("create guest: %v", err)
	}
	return g
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *model.Guest {
	t.Helper()
	g, err := e.store.Guests().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload guest %s: %v", id, err)
	}
	return g
}

func (e *testEnv) recordEvents() *[]events.Event {
	var got []events.Event
	e.bus.SubscribeAll(func(ev events.Event) { got = append(got, ev) })
	return &got
}

func adminContext() context.Context {
	return WithPrincipal(context.Background(), Principal{AccountID: uuid.New(), Admin: true})
}

// faultyStore injects failures into the audit repositories, including
// inside transactions.
type faultyStore struct {
	repository.Store
	historyErr error
	commErr    error
}

func (s *faultyStore) RSVPHistory() repository.RSVPHistoryRepository {
	if s.historyErr != nil {
		return failingHistory{err: s.historyErr}
	}
	return s.Store.RSVPHistory()
}

func (s *faultyStore) Communications() repository.CommunicationRepository {
	if s.commErr != nil {
		return failingCommunications{err: s.commErr}
	}
	return s.Store.Communications()
}

func (s *faultyStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, historyErr: s.historyErr, commErr: s.commErr})
	})
}

type failingHistory struct{ err error }

func (f failingHistory) Append(context.Context, *model.RSVPHistory) error { return f.err }
func (f failingHistory) ListByGuest(context.Context, uuid.UUID) ([]model.RSVPHistory, error) {
	return nil, f.err
}

type failingCommunications struct{ err error }

func (f failingCommunications) Append(context.Context, *model.GuestCommunication) error {
	return f.err
}
func (f failingCommunications) ListByGuest(context.Context, uuid.UUID) ([]model.GuestCommunication, error) {
	return nil, f.err
}
