package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wedding/guesthub/internal/events"
	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/repository"
	"wedding/guesthub/pkg/metrics"
)

// ContactUpdates carries the contact sub-fields a guest chose to change.
// Nil fields are left untouched.
type ContactUpdates struct {
	Phone            *string                 `json:"phone,omitempty"`
	Address          *string                 `json:"address,omitempty"`
	EmergencyContact *model.EmergencyContact `json:"emergency_contact,omitempty"`
}

// NewGuestInput names an attendee the responding guest brings along.
type NewGuestInput struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Email        string `json:"email" validate:"required"`
	Relationship string `json:"relationship"`
}

type RSVPInput struct {
	GuestID         uuid.UUID
	Status          model.RSVPStatus
	PlusOneName     string
	PlusOneEmail    string
	DietaryNeeds    []string // nil keeps the stored value
	Allergies       []string // nil keeps the stored value
	SpecialRequests *string
	ContactUpdates  *ContactUpdates
	NewGuests       []NewGuestInput
}

type RSVPResult struct {
	Guest       *model.Guest  `json:"guest"`
	AddedGuests int           `json:"added_guests"`
	Companions  []model.Guest `json:"companions,omitempty"`
}

type RSVPService interface {
	// ProcessRSVP applies a guest's submission and its cascades in one transaction.
	ProcessRSVP(ctx context.Context, input RSVPInput) (*RSVPResult, error)
	// OverrideStatus lets an administrator set any status, including reopening to pending.
	OverrideStatus(ctx context.Context, guestID uuid.UUID, status model.RSVPStatus, reason string) (*model.Guest, error)
}

type rsvpService struct {
	store    repository.Store
	notifier notifier
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewRSVPService(store repository.Store, bus *events.Bus, m *metrics.Metrics, logger *zap.Logger) RSVPService {
	return &rsvpService{
		store:    store,
		notifier: notifier{bus: bus, metrics: m},
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *rsvpService) ProcessRSVP(ctx context.Context, input RSVPInput) (_ *RSVPResult, err error) {
	ctx, span := tracer.Start(ctx, "RSVPService.ProcessRSVP")
	defer func() { endSpan(span, err) }()
	defer s.notifier.observe("process_rsvp", time.Now())

	span.SetAttributes(
		attribute.String("guest.id", input.GuestID.String()),
		attribute.String("rsvp.status", string(input.Status)),
	)

	if input.Status != model.RSVPStatusConfirmed && input.Status != model.RSVPStatusDeclined {
		return nil, ErrInvalidRSVPStatus
	}
	companions := s.validCompanions(input.NewGuests)

	var (
		guest *model.Guest
		added []model.Guest
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		g, err := tx.Guests().GetByID(ctx, input.GuestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGuestNotFound
			}
			return fmt.Errorf("load guest: %w", err)
		}
		if g.IsArchived {
			return ErrGuestNotFound
		}

		now := s.now()
		applySubmission(g, input, now)
		if input.ContactUpdates != nil {
			mergeContact(g, *input.ContactUpdates)
		}
		if err := tx.Guests().Update(ctx, g); err != nil {
			return fmt.Errorf("update guest: %w", err)
		}

		added = make([]model.Guest, 0, len(companions))
		for _, c := range companions {
			companion := newCompanion(g.ID, c, now)
			if err := tx.Guests().Create(ctx, companion); err != nil {
				return fmt.Errorf("create companion guest: %w", err)
			}
			added = append(added, *companion)
		}

		if input.Status == model.RSVPStatusDeclined {
			if _, err := tx.Guests().Archive(ctx, []uuid.UUID{g.ID}, model.DeclinedArchiveReason, now); err != nil {
				return fmt.Errorf("archive declined guest: %w", err)
			}
			markArchived(g, model.DeclinedArchiveReason, now)
		}

		if err := tx.RSVPHistory().Append(ctx, &model.RSVPHistory{
			GuestID:      g.ID,
			NewStatus:    input.Status,
			ChangeMethod: model.ChangeMethodGuestForm,
			ChangeReason: "Guest RSVP submission",
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("append rsvp history: %w", err)
		}

		guest = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logCommunication(ctx, guest, input, len(added))
	s.metrics.RSVPSubmissions.WithLabelValues(string(input.Status)).Inc()
	if guest.IsArchived {
		s.metrics.GuestsArchived.Inc()
	}

	ids := []uuid.UUID{guest.ID}
	for _, c := range added {
		ids = append(ids, c.ID)
	}
	s.notifier.emit(events.Event{
		Type:      events.TypeRSVP,
		GuestIDs:  ids,
		AccountID: guest.UserID,
		Data: map[string]any{
			"status":       string(input.Status),
			"added_guests": len(added),
			"archived":     guest.IsArchived,
		},
	})

	return &RSVPResult{Guest: guest, AddedGuests: len(added), Companions: added}, nil
}

func (s *rsvpService) OverrideStatus(ctx context.Context, guestID uuid.UUID, status model.RSVPStatus, reason string) (_ *model.Guest, err error) {
	ctx, span := tracer.Start(ctx, "RSVPService.OverrideStatus")
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown rsvp status %q", ErrInvalidInput, status)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Administrator update"
	}

	var guest *model.Guest
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		g, err := tx.Guests().GetByID(ctx, guestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGuestNotFound
			}
			return fmt.Errorf("load guest: %w", err)
		}

		now := s.now()
		g.RSVPStatus = status
		if status == model.RSVPStatusPending {
			g.RSVPRespondedAt = nil
		} else {
			g.RSVPRespondedAt = &now
		}
		if status == model.RSVPStatusDeclined {
			g.PlusOneName, g.PlusOneEmail = "", ""
		}
		if err := tx.Guests().Update(ctx, g); err != nil {
			return fmt.Errorf("update guest: %w", err)
		}
		if status == model.RSVPStatusDeclined && !g.IsArchived {
			if _, err := tx.Guests().Archive(ctx, []uuid.UUID{g.ID}, model.DeclinedArchiveReason, now); err != nil {
				return fmt.Errorf("archive declined guest: %w", err)
			}
			markArchived(g, model.DeclinedArchiveReason, now)
		}
		if err := tx.RSVPHistory().Append(ctx, &model.RSVPHistory{
			GuestID:      g.ID,
			NewStatus:    status,
			ChangeMethod: model.ChangeMethodAdmin,
			ChangeReason: reason,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("append rsvp history: %w", err)
		}
		guest = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.emit(events.Event{
		Type:      events.TypeRSVP,
		GuestIDs:  []uuid.UUID{guest.ID},
		AccountID: guest.UserID,
		Data:      map[string]any{"status": string(status), "override": true},
	})
	return guest, nil
}

// validCompanions keeps the entries whose required fields are all present.
// Anything else is dropped without error.
func (s *rsvpService) validCompanions(in []NewGuestInput) []NewGuestInput {
	out := make([]NewGuestInput, 0, len(in))
	for _, ng := range in {
		ng.FirstName = strings.TrimSpace(ng.FirstName)
		ng.LastName = strings.TrimSpace(ng.LastName)
		ng.Email = strings.TrimSpace(ng.Email)
		ng.Relationship = strings.TrimSpace(ng.Relationship)
		if err := s.validate.Struct(ng); err != nil {
			continue
		}
		out = append(out, ng)
	}
	return out
}

// logCommunication records the inbound summary. The RSVP is already
// committed, so a failure here is logged and counted only.
func (s *rsvpService) logCommunication(ctx context.Context, g *model.Guest, input RSVPInput, added int) {
	entry := &model.GuestCommunication{
		GuestID:   g.ID,
		Type:      model.CommunicationTypeRSVP,
		Subject:   "RSVP " + string(input.Status),
		Direction: model.DirectionInbound,
		Status:    model.CommunicationStatusReceived,
		Content: map[string]interface{}{
			"rsvp_status":      string(input.Status),
			"plus_one_name":    g.PlusOneName,
			"plus_one_email":   g.PlusOneEmail,
			"dietary_needs":    []string(g.DietaryNeeds),
			"allergies":        []string(g.Allergies),
			"special_requests": g.SpecialRequests,
			"added_guests":     added,
		},
	}
	if err := s.store.Communications().Append(ctx, entry); err != nil {
		s.metrics.AuditWriteErrors.WithLabelValues("guest_communications").Inc()
		s.logger.Warn("guest communication log write failed",
			zap.String("guest_id", g.ID.String()),
			zap.Error(err),
		)
	}
}

func applySubmission(g *model.Guest, input RSVPInput, now time.Time) {
	g.RSVPStatus = input.Status
	g.RSVPRespondedAt = &now

	if input.Status == model.RSVPStatusConfirmed {
		g.PlusOneName = strings.TrimSpace(input.PlusOneName)
		g.PlusOneEmail = strings.TrimSpace(input.PlusOneEmail)
	} else {
		g.PlusOneName, g.PlusOneEmail = "", ""
	}
	if input.DietaryNeeds != nil {
		g.DietaryNeeds = cleanList(input.DietaryNeeds)
	}
	if input.Allergies != nil {
		g.Allergies = cleanList(input.Allergies)
	}
	if input.SpecialRequests != nil {
		g.SpecialRequests = strings.TrimSpace(*input.SpecialRequests)
	}
}

// mergeContact overwrites only the provided sub-fields.
func mergeContact(g *model.Guest, u ContactUpdates) {
	cd := g.Contact()
	if u.Phone != nil {
		phone := strings.TrimSpace(*u.Phone)
		cd.Phone = phone
		g.Phone = phone
	}
	if u.Address != nil {
		cd.Address = strings.TrimSpace(*u.Address)
	}
	if u.EmergencyContact != nil {
		ec := model.EmergencyContact{}
		if cd.EmergencyContact != nil {
			ec = *cd.EmergencyContact
		}
		if name := strings.TrimSpace(u.EmergencyContact.Name); name != "" {
			ec.Name = name
		}
		if phone := strings.TrimSpace(u.EmergencyContact.Phone); phone != "" {
			ec.Phone = phone
		}
		cd.EmergencyContact = &ec
	}
	g.SetContact(cd)
}

func newCompanion(addedBy uuid.UUID, in NewGuestInput, now time.Time) *model.Guest {
	respondedAt := now
	g := &model.Guest{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		DisplayName:     in.FirstName + " " + in.LastName,
		Email:           in.Email,
		RSVPStatus:      model.RSVPStatusConfirmed,
		RSVPRespondedAt: &respondedAt,
		DietaryNeeds:    model.StringSlice{},
		Allergies:       model.StringSlice{},
	}
	g.SetContact(model.ContactDetails{
		Relationship:   in.Relationship,
		AddedByGuestID: addedBy.String(),
	})
	return g
}

func markArchived(g *model.Guest, reason string, at time.Time) {
	archivedAt := at
	g.IsArchived = true
	g.ArchivedAt = &archivedAt
	g.ArchiveReason = reason
}
