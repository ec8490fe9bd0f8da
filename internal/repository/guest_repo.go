package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
)

// GuestFilter narrows List. The zero value lists active guests of any status.
type GuestFilter struct {
	IncludeArchived bool
	LinkedOnly      bool
	Status          model.RSVPStatus
}

type GuestRepository interface {
	Create(ctx context.Context, guest *model.Guest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Guest, error)
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*model.Guest, error)
	List(ctx context.Context, filter GuestFilter) ([]model.Guest, error)
	Update(ctx context.Context, guest *model.Guest) error
	// LinkAccount sets user_id iff no other active guest carries userID.
	// It reports false when the condition blocked the write.
	LinkAccount(ctx context.Context, guestID, userID uuid.UUID) (bool, error)
	UnlinkAccount(ctx context.Context, guestID uuid.UUID) error
	// Archive marks the given active guests archived; already archived rows are untouched.
	Archive(ctx context.Context, ids []uuid.UUID, reason string, at time.Time) (int64, error)
	Restore(ctx context.Context, id uuid.UUID) error
	CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	ListLinkedUserIDs(ctx context.Context) ([]uuid.UUID, error)
}
