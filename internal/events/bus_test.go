package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBusDeliversByType(t *testing.T) {
	bus := NewBus(nil)

	var rsvp, archived, all int
	bus.Subscribe(TypeRSVP, func(Event) { rsvp++ })
	bus.Subscribe(TypeGuestArchived, func(Event) { archived++ })
	bus.SubscribeAll(func(Event) { all++ })

	bus.Emit(Event{Type: TypeRSVP})
	bus.Emit(Event{Type: TypeRSVP})
	bus.Emit(Event{Type: TypeGuestArchived})

	if rsvp != 2 || archived != 1 || all != 3 {
		t.Fatalf("deliveries rsvp=%d archived=%d all=%d, want 2/1/3", rsvp, archived, all)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var calls int
	unsubscribe := bus.Subscribe(TypeGuestLinked, func(Event) { calls++ })
	bus.Emit(Event{Type: TypeGuestLinked})
	unsubscribe()
	unsubscribe()
	bus.Emit(Event{Type: TypeGuestLinked})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBusNoReplayForLateSubscribers(t *testing.T) {
	bus := NewBus(nil)
	bus.Emit(Event{Type: TypeRSVP})

	var calls int
	bus.SubscribeAll(func(Event) { calls++ })
	if calls != 0 {
		t.Fatalf("late subscriber saw %d past events", calls)
	}
}

func TestBusRecoversHandlerPanic(t *testing.T) {
	bus := NewBus(nil)

	var after int
	bus.Subscribe(TypeRSVP, func(Event) { panic("boom") })
	bus.Subscribe(TypeRSVP, func(Event) { after++ })

	bus.Emit(Event{Type: TypeRSVP})
	if after != 1 {
		t.Fatalf("handler after panicking one ran %d times, want 1", after)
	}
}

func TestBusStampsOccurredAt(t *testing.T) {
	bus := NewBus(nil)

	var got Event
	bus.SubscribeAll(func(e Event) { got = e })
	bus.Emit(Event{Type: TypeGuestCreated})
	if got.OccurredAt.IsZero() {
		t.Fatal("OccurredAt was not set")
	}
}

func TestBusConcurrentUse(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	var calls int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsubscribe := bus.SubscribeAll(func(Event) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			for j := 0; j < 50; j++ {
				bus.Emit(Event{Type: TypeRSVP})
			}
			unsubscribe()
		}()
	}
	wg.Wait()
	if calls == 0 {
		t.Fatal("expected some deliveries")
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	keys    []string
	err     error
	release chan struct{}
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func TestBridgeToBroker(t *testing.T) {
	bus := NewBus(nil)
	pub := &recordingPublisher{}
	stop := BridgeToBroker(bus, pub, time.Second, nil)

	id := uuid.New()
	bus.Emit(Event{Type: TypeRSVP, GuestIDs: []uuid.UUID{id}})
	bus.Emit(Event{Type: TypeBookingCreated})
	stop()
	bus.Emit(Event{Type: TypeRSVP})

	got := pub.published()
	want := []string{"guesthub.rsvp", "guesthub.booking_created"}
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published %v, want %v", got, want)
		}
	}
}

func TestBridgeToBrokerDoesNotBlockEmit(t *testing.T) {
	bus := NewBus(nil)
	pub := &recordingPublisher{release: make(chan struct{})}
	stop := BridgeToBroker(bus, pub, time.Second, nil)

	emitted := make(chan struct{})
	go func() {
		for i := 0; i < bridgeBuffer+10; i++ {
			bus.Emit(Event{Type: TypeRSVP})
		}
		close(emitted)
	}()
	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a stalled broker")
	}

	close(pub.release)
	stop()
	if n := len(pub.published()); n == 0 || n > bridgeBuffer+1 {
		t.Fatalf("published %d events, want between 1 and %d", n, bridgeBuffer+1)
	}
}

func TestBridgeToBrokerIgnoresPublishErrors(t *testing.T) {
	bus := NewBus(nil)
	pub := &recordingPublisher{err: errors.New("broker down")}
	stop := BridgeToBroker(bus, pub, time.Second, nil)
	defer stop()

	var delivered bool
	bus.Subscribe(TypeRSVP, func(Event) { delivered = true })
	bus.Emit(Event{Type: TypeRSVP})
	if !delivered {
		t.Fatal("publish failure blocked other subscribers")
	}
}
