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

const syncLockKey = "guest-sync:lock"

type ListOptions struct {
	IncludeArchived bool
	LinkedOnly      bool
	Status          model.RSVPStatus
	Search          string
}

// GuestInput is an admin-entered invitee.
type GuestInput struct {
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	DisplayName     string     `json:"display_name"`
	Email           string     `json:"email" validate:"required,email"`
	Phone           string     `json:"phone"`
	TableAssignment string     `json:"table_assignment"`
	Relationship    string     `json:"relationship"`
	RSVPDeadline    *time.Time `json:"rsvp_deadline"`
}

// GuestUpdate carries admin edits; nil fields are left untouched.
type GuestUpdate struct {
	FirstName        *string                 `json:"first_name"`
	LastName         *string                 `json:"last_name"`
	DisplayName      *string                 `json:"display_name"`
	Email            *string                 `json:"email" validate:"omitempty,email"`
	Phone            *string                 `json:"phone"`
	TableAssignment  *string                 `json:"table_assignment"`
	SpecialRequests  *string                 `json:"special_requests"`
	DietaryNeeds     []string                `json:"dietary_needs"`
	Allergies        []string                `json:"allergies"`
	Address          *string                 `json:"address"`
	Relationship     *string                 `json:"relationship"`
	EmergencyContact *model.EmergencyContact `json:"emergency_contact"`
	RSVPDeadline     *time.Time              `json:"rsvp_deadline"`
}

type SyncResult struct {
	Synced int `json:"synced"`
	Errors int `json:"errors"`
}

type GuestService interface {
	List(ctx context.Context, opts ListOptions) ([]model.Guest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Guest, error)
	// GetByAccount returns nil, nil when no active guest is linked to accountID.
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*model.Guest, error)
	Create(ctx context.Context, input GuestInput) (*model.Guest, error)
	Import(ctx context.Context, inputs []GuestInput) ([]model.Guest, error)
	Update(ctx context.Context, id uuid.UUID, input GuestUpdate) (*model.Guest, error)
	Link(ctx context.Context, guestID, accountID uuid.UUID) (*model.Guest, error)
	Unlink(ctx context.Context, guestID uuid.UUID) (*model.Guest, error)
	Archive(ctx context.Context, guestID uuid.UUID, reason string) (*model.Guest, error)
	Restore(ctx context.Context, guestID uuid.UUID) (*model.Guest, error)
	BulkArchive(ctx context.Context, ids []uuid.UUID, reason string) (int64, error)
	SetRSVPStatus(ctx context.Context, guestID uuid.UUID, status model.RSVPStatus, reason string) (*model.Guest, error)
	MarkInvitationSent(ctx context.Context, guestID uuid.UUID) (*model.Guest, error)
	SyncAccounts(ctx context.Context) (*SyncResult, error)
	Stats(ctx context.Context) (*GuestStats, error)
	History(ctx context.Context, guestID uuid.UUID) ([]model.RSVPHistory, error)
	Communications(ctx context.Context, guestID uuid.UUID) ([]model.GuestCommunication, error)
}

type guestService struct {
	store    repository.Store
	state    repository.StateStore
	rsvp     RSVPService
	notifier notifier
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	syncTTL  time.Duration
	now      func() time.Time
}

func NewGuestService(
	store repository.Store,
	state repository.StateStore,
	rsvp RSVPService,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *zap.Logger,
) GuestService {
	return &guestService{
		store:    store,
		state:    state,
		rsvp:     rsvp,
		notifier: notifier{bus: bus, metrics: m},
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
		syncTTL:  2 * time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *guestService) List(ctx context.Context, opts ListOptions) ([]model.Guest, error) {
	guests, err := s.store.Guests().List(ctx, repository.GuestFilter{
		IncludeArchived: opts.IncludeArchived,
		LinkedOnly:      opts.LinkedOnly,
		Status:          opts.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	return SearchGuests(guests, opts.Search), nil
}

func (s *guestService) Get(ctx context.Context, id uuid.UUID) (*model.Guest, error) {
	return s.load(ctx, s.store, id)
}

func (s *guestService) GetByAccount(ctx context.Context, accountID uuid.UUID) (*model.Guest, error) {
	guest, err := s.store.Guests().GetActiveByUserID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guest by account: %w", err)
	}
	return guest, nil
}

func (s *guestService) Create(ctx context.Context, input GuestInput) (*model.Guest, error) {
	guest, err := s.newGuest(input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Guests().Create(ctx, guest); err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}
	s.notifier.emit(events.Event{Type: events.TypeGuestCreated, GuestIDs: []uuid.UUID{guest.ID}})
	return guest, nil
}

func (s *guestService) Import(ctx context.Context, inputs []GuestInput) ([]model.Guest, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: nothing to import", ErrInvalidInput)
	}
	guests := make([]*model.Guest, 0, len(inputs))
	for i, in := range inputs {
		g, err := s.newGuest(in)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		guests = append(guests, g)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		for _, g := range guests {
			if err := tx.Guests().Create(ctx, g); err != nil {
				return fmt.Errorf("import guest %s: %w", g.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Guest, 0, len(guests))
	ids := make([]uuid.UUID, 0, len(guests))
	for _, g := range guests {
		out = append(out, *g)
		ids = append(ids, g.ID)
	}
	s.notifier.emit(events.Event{Type: events.TypeGuestCreated, GuestIDs: ids, Data: map[string]any{"imported": len(ids)}})
	return out, nil
}

func (s *guestService) Update(ctx context.Context, id uuid.UUID, input GuestUpdate) (*model.Guest, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	guest, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}

	setString(&guest.FirstName, input.FirstName)
	setString(&guest.LastName, input.LastName)
	setString(&guest.DisplayName, input.DisplayName)
	setString(&guest.Email, input.Email)
	setString(&guest.Phone, input.Phone)
	setString(&guest.TableAssignment, input.TableAssignment)
	setString(&guest.SpecialRequests, input.SpecialRequests)
	if input.DietaryNeeds != nil {
		guest.DietaryNeeds = cleanList(input.DietaryNeeds)
	}
	if input.Allergies != nil {
		guest.Allergies = cleanList(input.Allergies)
	}
	if input.RSVPDeadline != nil {
		guest.RSVPDeadline = input.RSVPDeadline
	}
	if strings.TrimSpace(guest.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	cd := guest.Contact()
	if input.Phone != nil {
		cd.Phone = guest.Phone
	}
	setString(&cd.Address, input.Address)
	setString(&cd.Relationship, input.Relationship)
	if input.EmergencyContact != nil {
		ec := *input.EmergencyContact
		cd.EmergencyContact = &ec
	}
	guest.SetContact(cd)

	if err := s.store.Guests().Update(ctx, guest); err != nil {
		return nil, fmt.Errorf("update guest: %w", err)
	}
	s.notifier.emit(events.Event{Type: events.TypeGuestUpdated, GuestIDs: []uuid.UUID{guest.ID}, AccountID: guest.UserID})
	return guest, nil
}

func (s *guestService) Link(ctx context.Context, guestID, accountID uuid.UUID) (_ *model.Guest, err error) {
	ctx, span := tracer.Start(ctx, "GuestService.Link")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("guest.id", guestID.String()), attribute.String("account.id", accountID.String()))

	if accountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	guest, err := s.load(ctx, s.store, guestID)
	if err != nil {
		return nil, err
	}
	if guest.UserID != nil && *guest.UserID == accountID {
		return guest, nil
	}

	linked, err := s.store.Guests().LinkAccount(ctx, guestID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyLinked
		}
		return nil, fmt.Errorf("link guest: %w", err)
	}
	if !linked {
		return nil, ErrAlreadyLinked
	}

	id := accountID
	guest.UserID = &id
	s.notifier.emit(events.Event{Type: events.TypeGuestLinked, GuestIDs: []uuid.UUID{guest.ID}, AccountID: &id})
	return guest, nil
}

func (s *guestService) Unlink(ctx context.Context, guestID uuid.UUID) (*model.Guest, error) {
	guest, err := s.load(ctx, s.store, guestID)
	if err != nil {
		return nil, err
	}
	previous := guest.UserID
	if err := s.store.Guests().UnlinkAccount(ctx, guestID); err != nil {
		return nil, fmt.Errorf("unlink guest: %w", err)
	}
	guest.UserID = nil
	if previous != nil {
		s.notifier.emit(events.Event{Type: events.TypeGuestUnlinked, GuestIDs: []uuid.UUID{guest.ID}, AccountID: previous})
	}
	return guest, nil
}

func (s *guestService) Archive(ctx context.Context, guestID uuid.UUID, reason string) (*model.Guest, error) {
	if _, err := s.load(ctx, s.store, guestID); err != nil {
		return nil, err
	}
	n, err := s.store.Guests().Archive(ctx, []uuid.UUID{guestID}, strings.TrimSpace(reason), s.now())
	if err != nil {
		return nil, fmt.Errorf("archive guest: %w", err)
	}
	guest, err := s.load(ctx, s.store, guestID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.metrics.GuestsArchived.Add(float64(n))
		s.notifier.emit(events.Event{Type: events.TypeGuestArchived, GuestIDs: []uuid.UUID{guestID}, AccountID: guest.UserID})
	}
	return guest, nil
}

func (s *guestService) Restore(ctx context.Context, guestID uuid.UUID) (*model.Guest, error) {
	guest, err := s.load(ctx, s.store, guestID)
	if err != nil {
		return nil, err
	}
	if !guest.IsArchived {
		return guest, nil
	}
	if err := s.store.Guests().Restore(ctx, guestID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyLinked
		}
		return nil, fmt.Errorf("restore guest: %w", err)
	}
	guest.IsArchived = false
	guest.ArchivedAt = nil
	guest.ArchiveReason = ""
	s.notifier.emit(events.Event{Type: events.TypeGuestRestored, GuestIDs: []uuid.UUID{guestID}, AccountID: guest.UserID})
	return guest, nil
}

func (s *guestService) BulkArchive(ctx context.Context, ids []uuid.UUID, reason string) (_ int64, err error) {
	ctx, span := tracer.Start(ctx, "GuestService.BulkArchive")
	defer func() { endSpan(span, err) }()

	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return 0, fmt.Errorf("%w: no guest ids given", ErrInvalidInput)
	}
	span.SetAttributes(attribute.Int("guest.count", len(unique)))

	var archived int64
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		found, err := tx.Guests().CountByIDs(ctx, unique)
		if err != nil {
			return fmt.Errorf("count guests: %w", err)
		}
		if found != int64(len(unique)) {
			return ErrGuestNotFound
		}
		archived, err = tx.Guests().Archive(ctx, unique, strings.TrimSpace(reason), s.now())
		if err != nil {
			return fmt.Errorf("bulk archive guests: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if archived > 0 {
		s.metrics.GuestsArchived.Add(float64(archived))
		s.notifier.emit(events.Event{
			Type:     events.TypeGuestArchived,
			GuestIDs: unique,
			Data:     map[string]any{"archived": archived, "bulk": true},
		})
	}
	return archived, nil
}

func (s *guestService) SetRSVPStatus(ctx context.Context, guestID uuid.UUID, status model.RSVPStatus, reason string) (*model.Guest, error) {
	return s.rsvp.OverrideStatus(ctx, guestID, status, reason)
}

func (s *guestService) MarkInvitationSent(ctx context.Context, guestID uuid.UUID) (*model.Guest, error) {
	guest, err := s.load(ctx, s.store, guestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	guest.InvitationSentAt = &now
	if err := s.store.Guests().Update(ctx, guest); err != nil {
		return nil, fmt.Errorf("mark invitation sent: %w", err)
	}
	s.notifier.emit(events.Event{Type: events.TypeGuestUpdated, GuestIDs: []uuid.UUID{guest.ID}, AccountID: guest.UserID})
	return guest, nil
}

// SyncAccounts creates a pending guest for every account that no guest
// record, archived or not, is linked to yet.
func (s *guestService) SyncAccounts(ctx context.Context) (_ *SyncResult, err error) {
	ctx, span := tracer.Start(ctx, "GuestService.SyncAccounts")
	defer func() { endSpan(span, err) }()
	defer s.notifier.observe("sync_accounts", time.Now())

	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	acquired, err := s.state.SetNX(ctx, syncLockKey, []byte(token), s.syncTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if _, err := s.state.Release(context.WithoutCancel(ctx), syncLockKey, []byte(token)); err != nil {
			s.logger.Warn("release sync lock failed", zap.Error(err))
		}
	}()

	linkedIDs, err := s.store.Guests().ListLinkedUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	linked := make(map[uuid.UUID]struct{}, len(linkedIDs))
	for _, id := range linkedIDs {
		linked[id] = struct{}{}
	}

	result := &SyncResult{}
	var created []uuid.UUID
	for i := range accounts {
		acc := &accounts[i]
		if _, ok := linked[acc.ID]; ok {
			continue
		}
		guest := guestFromAccount(acc)
		if err := s.store.Guests().Create(ctx, guest); err != nil {
			result.Errors++
			s.logger.Warn("sync guest from account failed",
				zap.String("account_id", acc.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Synced++
		created = append(created, guest.ID)
	}

	span.SetAttributes(attribute.Int("sync.synced", result.Synced), attribute.Int("sync.errors", result.Errors))
	s.logger.Info("account sync finished",
		zap.Int("accounts", len(accounts)),
		zap.Int("synced", result.Synced),
		zap.Int("errors", result.Errors),
	)
	if result.Synced > 0 {
		s.metrics.GuestsSynced.Add(float64(result.Synced))
		s.notifier.emit(events.Event{
			Type:     events.TypeGuestsSynced,
			GuestIDs: created,
			Data:     map[string]any{"synced": result.Synced, "errors": result.Errors},
		})
	}
	return result, nil
}

func (s *guestService) Stats(ctx context.Context) (*GuestStats, error) {
	guests, err := s.store.Guests().List(ctx, repository.GuestFilter{IncludeArchived: true})
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	stats := ComputeStats(guests)
	return &stats, nil
}

func (s *guestService) History(ctx context.Context, guestID uuid.UUID) ([]model.RSVPHistory, error) {
	if _, err := s.load(ctx, s.store, guestID); err != nil {
		return nil, err
	}
	entries, err := s.store.RSVPHistory().ListByGuest(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("list rsvp history: %w", err)
	}
	return entries, nil
}

func (s *guestService) Communications(ctx context.Context, guestID uuid.UUID) ([]model.GuestCommunication, error) {
	if _, err := s.load(ctx, s.store, guestID); err != nil {
		return nil, err
	}
	entries, err := s.store.Communications().ListByGuest(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	return entries, nil
}

func (s *guestService) load(ctx context.Context, store repository.Store, id uuid.UUID) (*model.Guest, error) {
	guest, err := store.Guests().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("get guest: %w", err)
	}
	return guest, nil
}

func (s *guestService) newGuest(input GuestInput) (*model.Guest, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	guest := &model.Guest{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		DisplayName:     strings.TrimSpace(input.DisplayName),
		Email:           input.Email,
		Phone:           strings.TrimSpace(input.Phone),
		RSVPStatus:      model.RSVPStatusPending,
		TableAssignment: strings.TrimSpace(input.TableAssignment),
		RSVPDeadline:    input.RSVPDeadline,
		DietaryNeeds:    model.StringSlice{},
		Allergies:       model.StringSlice{},
	}
	if guest.DisplayName == "" {
		guest.DisplayName = guest.FullName()
	}
	guest.SetContact(model.ContactDetails{
		Phone:        guest.Phone,
		Relationship: strings.TrimSpace(input.Relationship),
	})
	return guest, nil
}

// guestFromAccount seeds a pending guest from the account's profile metadata.
func guestFromAccount(acc *model.Account) *model.Guest {
	userID := acc.ID
	guest := &model.Guest{
		UserID:       &userID,
		FirstName:    acc.ProfileString("first_name"),
		LastName:     acc.ProfileString("last_name"),
		DisplayName:  acc.ProfileString("display_name"),
		Email:        acc.Email,
		Phone:        acc.ProfileString("phone"),
		RSVPStatus:   model.RSVPStatusPending,
		DietaryNeeds: model.StringSlice{},
		Allergies:    model.StringSlice{},
	}
	if guest.DisplayName == "" {
		guest.DisplayName = guest.FullName()
	}
	if guest.DisplayName == "" {
		guest.DisplayName = acc.Email
	}
	guest.SetContact(model.ContactDetails{Phone: guest.Phone})
	return guest
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
