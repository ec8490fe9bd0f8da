package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"wedding/guesthub/internal/events"
	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/repository"
)

func TestProcessRSVPConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.addGuest(t, "g1@example.com")

	res, err := env.rsvp.ProcessRSVP(ctx, RSVPInput{
		GuestID:      g.ID,
		Status:       model.RSVPStatusConfirmed,
		DietaryNeeds: []string{"vegetarian"},
	})
	if err != nil {
		t.Fatalf("process rsvp: %v", err)
	}
	if res.AddedGuests != 0 {
		t.Fatalf("added guests = %d, want 0", res.AddedGuests)
	}

	got := env.reload(t, g.ID)
	if got.RSVPStatus != model.RSVPStatusConfirmed {
		t.Fatalf("status = %q, want confirmed", got.RSVPStatus)
	}
	if len(got.DietaryNeeds) != 1 || got.DietaryNeeds[0] != "vegetarian" {
		t.Fatalf("dietary needs = %v, want [vegetarian]", got.DietaryNeeds)
	}
	if got.RSVPRespondedAt == nil {
		t.Fatal("responded-at not stamped")
	}

	history, err := env.store.RSVPHistory().ListByGuest(ctx, g.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].NewStatus != model.RSVPStatusConfirmed {
		t.Fatalf("history = %+v, want one confirmed entry", history)
	}
	if history[0].ChangeMethod != model.ChangeMethodGuestForm {
		t.Fatalf("change method = %q", history[0].ChangeMethod)
	}

	comms, err := env.store.Communications().ListByGuest(ctx, g.ID)
	if err != nil {
		t.Fatalf("list communications: %v", err)
	}
	if len(comms) != 1 {
		t.Fatalf("communications = %d, want 1", len(comms))
	}
	if comms[0].Direction != model.DirectionInbound || comms[0].Status != model.CommunicationStatusReceived {
		t.Fatalf("communication = %+v", comms[0])
	}
}

func TestProcessRSVPDeclineArchives(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.addGuest(t, "g1@example.com")

	_, err := env.rsvp.ProcessRSVP(ctx, RSVPInput{
		GuestID:     g.ID,
		Status:      model.RSVPStatusDeclined,
		PlusOneName: "Someone",
	})
	if err != nil {
		t.Fatalf("process rsvp: %v", err)
	}

	got := env.reload(t, g.ID)
	if !got.IsArchived || got.ArchiveReason != model.DeclinedArchiveReason {
		t.Fatalf("archived=%v reason=%q, want archived with %q", got.IsArchived, got.ArchiveReason, model.DeclinedArchiveReason)
	}
	if got.ArchivedAt == nil {
		t.Fatal("archived-at not set")
	}
	if got.PlusOneName != "" {
		t.Fatalf("plus-one kept on decline: %q", got.PlusOneName)
	}

	active, err := env.guests.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("default list returned %d guests, want 0", len(active))
	}
	all, err := env.guests.List(ctx, ListOptions{IncludeArchived: true})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(all) != 1 || all[0].ID != g.ID {
		t.Fatalf("include_archived list = %v", all)
	}
}

func TestProcessRSVPCreatesValidCompanionsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.addGuest(t, "g1@example.com")

	res, err := env.rsvp.ProcessRSVP(ctx, RSVPInput{
		GuestID: g.ID,
		Status:  model.RSVPStatusConfirmed,
		NewGuests: []NewGuestInput{
			{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Relationship: "spouse"},
			{FirstName: "", LastName: "X", Email: "y@x.com", Relationship: "friend"},
			{FirstName: "  ", LastName: "Y", Email: "z@x.com"},
		},
	})
	if err != nil {
		t.Fatalf("process rsvp: %v", err)
	}
	if res.AddedGuests != 1 {
		t.Fatalf("added guests = %d, want 1", res.AddedGuests)
	}

	guests, err := env.guests.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(guests) != 2 {
		t.Fatalf("guest count = %d, want 2", len(guests))
	}
	var jane *model.Guest
	for i := range guests {
		if guests[i].Email == "jane@x.com" {
			jane = &guests[i]
		}
	}
	if jane == nil {
		t.Fatal("companion guest not created")
	}
	if jane.RSVPStatus != model.RSVPStatusConfirmed || jane.RSVPRespondedAt == nil {
		t.Fatalf("companion status=%q responded=%v", jane.RSVPStatus, jane.RSVPRespondedAt)
	}
	cd := jane.Contact()
	if cd.Relationship != "spouse" || cd.AddedByGuestID != g.ID.String() {
		t.Fatalf("companion contact = %+v", cd)
	}
}

func TestProcessRSVPRejectsPending(t *testing.T) {
	env := newTestEnv(t)
	g := env.addGuest(t, "g1@example.com")

	_, err := env.rsvp.ProcessRSVP(context.Background(), RSVPInput{GuestID: g.ID, Status: model.RSVPStatusPending})
	if !errors.Is(err, ErrInvalidRSVPStatus) {
		t.Fatalf("err = %v, want ErrInvalidRSVPStatus", err)
	}
	if got := env.reload(t, g.ID); got.RSVPStatus != model.RSVPStatusPending || got.RSVPRespondedAt != nil {
		t.Fatalf("guest mutated: status=%q responded=%v", got.RSVPStatus, got.RSVPRespondedAt)
	}
}

func TestProcessRSVPNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.rsvp.ProcessRSVP(ctx, RSVPInput{GuestID: uuid.New(), Status: model.RSVPStatusConfirmed})
	if !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("unknown guest: err = %v, want ErrGuestNotFound", err)
	}

	g := env.addGuest(t, "archived@example.com")
	if _, err := env.guests.Archive(ctx, g.ID, "moved away"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	_, err = env.rsvp.ProcessRSVP(ctx, RSVPInput{GuestID: g.ID, Status: model.RSVPStatusConfirmed})
	if !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("archived guest: err = %v, want ErrGuestNotFound", err)
	}
}

func TestProcessRSVPRollsBackOnHistoryFailure(t *testing.T) {
	base := repository.NewMemoryStore()
	env := newTestEnvWithStore(t, base)
	g := env.addGuest(t, "g1@example.com")

	faulty := newTestEnvWithStore(t, &faultyStore{Store: base, historyErr: errors.New("history table locked")})
	got := faulty.recordEvents()

	_, err := faulty.rsvp.ProcessRSVP(context.Background(), RSVPInput{
		GuestID:      g.ID,
		Status:       model.RSVPStatusDeclined,
		DietaryNeeds: []string{"vegan"},
		NewGuests: []NewGuestInput{
			{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Relationship: "spouse"},
		},
	})
	if err == nil {
		t.Fatal("expected history failure to fail the rsvp")
	}

	after := env.reload(t, g.ID)
	if after.RSVPStatus != model.RSVPStatusPending || after.RSVPRespondedAt != nil {
		t.Fatalf("status change persisted: %q", after.RSVPStatus)
	}
	if after.IsArchived {
		t.Fatal("archive persisted after rollback")
	}
	if len(after.DietaryNeeds) != 0 {
		t.Fatalf("dietary needs persisted: %v", after.DietaryNeeds)
	}
	all, err := env.guests.List(context.Background(), ListOptions{IncludeArchived: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("companion persisted after rollback: %d guests", len(all))
	}
	if len(*got) != 0 {
		t.Fatalf("events emitted for failed rsvp: %v", *got)
	}
}

func TestProcessRSVPCommunicationLogIsBestEffort(t *testing.T) {
	base := repository.NewMemoryStore()
	env := newTestEnvWithStore(t, &faultyStore{Store: base, commErr: errors.New("log unavailable")})
	g := env.addGuest(t, "g1@example.com")

	if _, err := env.rsvp.ProcessRSVP(context.Background(), RSVPInput{GuestID: g.ID, Status: model.RSVPStatusConfirmed}); err != nil {
		t.Fatalf("process rsvp: %v", err)
	}
	if got := env.reload(t, g.ID); got.RSVPStatus != model.RSVPStatusConfirmed {
		t.Fatalf("status = %q, want confirmed", got.RSVPStatus)
	}
	if n := testutil.ToFloat64(env.metrics.AuditWriteErrors.WithLabelValues("guest_communications")); n != 1 {
		t.Fatalf("audit write errors = %v, want 1", n)
	}
}

func TestProcessRSVPEmitsAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	g := env.addGuest(t, "g1@example.com")

	var seen model.RSVPStatus
	env.bus.Subscribe(events.TypeRSVP, func(e events.Event) {
		stored, err := env.store.Guests().GetByID(context.Background(), e.GuestIDs[0])
		if err != nil {
			t.Errorf("reload in handler: %v", err)
			return
		}
		seen = stored.RSVPStatus
	})

	if _, err := env.rsvp.ProcessRSVP(context.Background(), RSVPInput{GuestID: g.ID, Status: model.RSVPStatusConfirmed}); err != nil {
		t.Fatalf("process rsvp: %v", err)
	}
	if seen != model.RSVPStatusConfirmed {
		t.Fatalf("subscriber saw status %q, want committed confirmed", seen)
	}
}

func TestProcessRSVPMergesContactUpdates(t *testing.T) {
	env := newTestEnv(t)
	g := env.addGuest(t, "g1@example.com")
	g.SetContact(model.ContactDetails{
		Address:          "1 Old Road",
		Relationship:     "cousin",
		EmergencyContact: &model.EmergencyContact{Name: "Mum", Phone: "111"},
	})
	if err := env.store.Guests().Update(context.Background(), g); err != nil {
		t.Fatalf("seed contact: %v", err)
	}

	phone := "+44 7700 900123"
	_, err := env.rsvp.ProcessRSVP(context.Background(), RSVPInput{
		GuestID: g.ID,
		Status:  model.RSVPStatusConfirmed,
		ContactUpdates: &ContactUpdates{
			Phone:            &phone,
			EmergencyContact: &model.EmergencyContact{Phone: "222"},
		},
	})
	if err != nil {
		t.Fatalf("process rsvp: %v", err)
	}

	got := env.reload(t, g.ID)
	cd := got.Contact()
	if got.Phone != phone || cd.Phone != phone {
		t.Fatalf("phone = %q / %q, want %q", got.Phone, cd.Phone, phone)
	}
	if cd.Address != "1 Old Road" || cd.Relationship != "cousin" {
		t.Fatalf("untouched contact fields changed: %+v", cd)
	}
	if cd.EmergencyContact == nil || cd.EmergencyContact.Name != "Mum" || cd.EmergencyContact.Phone != "222" {
		t.Fatalf("emergency contact = %+v", cd.EmergencyContact)
	}
}

func TestRespondedAtTracksStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.addGuest(t, "g1@example.com")

	check := func(stage string) {
		t.Helper()
		got := env.reload(t, g.ID)
		if (got.RSVPRespondedAt != nil) != (got.RSVPStatus != model.RSVPStatusPending) {
			t.Fatalf("%s: status=%q responded=%v", stage, got.RSVPStatus, got.RSVPRespondedAt)
		}
	}

	check("initial")
	if _, err := env.rsvp.ProcessRSVP(ctx, RSVPInput{GuestID: g.ID, Status: model.RSVPStatusConfirmed}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	check("confirmed")
	if _, err := env.rsvp.OverrideStatus(ctx, g.ID, model.RSVPStatusPending, "reopened"); err != nil {
		t.Fatalf("override: %v", err)
	}
	check("reopened")
	if _, err := env.rsvp.OverrideStatus(ctx, g.ID, model.RSVPStatusDeclined, ""); err != nil {
		t.Fatalf("override decline: %v", err)
	}
	check("declined")

	got := env.reload(t, g.ID)
	if !got.IsArchived {
		t.Fatal("admin decline did not archive")
	}
	history, err := env.store.RSVPHistory().ListByGuest(ctx, g.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || history[1].ChangeMethod != model.ChangeMethodAdmin {
		t.Fatalf("history = %+v", history)
	}
}

func TestOverrideStatusRejectsUnknown(t *testing.T) {
	env := newTestEnv(t)
	g := env.addGuest(t, "g1@example.com")

	_, err := env.rsvp.OverrideStatus(context.Background(), g.ID, model.RSVPStatus("maybe"), "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
