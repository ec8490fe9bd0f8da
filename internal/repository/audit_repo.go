package repository

import (
	"context"

	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
)

type RSVPHistoryRepository interface {
	Append(ctx context.Context, entry *model.RSVPHistory) error
	ListByGuest(ctx context.Context, guestID uuid.UUID) ([]model.RSVPHistory, error)
}

type CommunicationRepository interface {
	Append(ctx context.Context, entry *model.GuestCommunication) error
	ListByGuest(ctx context.Context, guestID uuid.UUID) ([]model.GuestCommunication, error)
}
