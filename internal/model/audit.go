package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChangeMethod string

const (
	ChangeMethodGuestForm ChangeMethod = "guest_form"
	ChangeMethodAdmin     ChangeMethod = "admin"
)

// RSVPHistory is the append-only trail of RSVP transitions.
type RSVPHistory struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	GuestID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"guest_id"`
	NewStatus    RSVPStatus   `gorm:"type:varchar(16);not null" json:"new_status"`
	ChangeMethod ChangeMethod `gorm:"type:varchar(32);not null" json:"change_method"`
	ChangeReason string       `gorm:"type:text" json:"change_reason,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
}

func (RSVPHistory) TableName() string { return "rsvp_history" }

func (h *RSVPHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type CommunicationDirection string

const (
	DirectionInbound  CommunicationDirection = "inbound"
	DirectionOutbound CommunicationDirection = "outbound"
)

const (
	CommunicationTypeRSVP       = "rsvp_submission"
	CommunicationStatusReceived = "received"
)

// GuestCommunication is the append-only log of messages tied to a guest.
type GuestCommunication struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	GuestID   uuid.UUID              `gorm:"type:uuid;not null;index" json:"guest_id"`
	Type      string                 `gorm:"type:varchar(64);not null" json:"type"`
	Subject   string                 `gorm:"type:varchar(256)" json:"subject"`
	Content   datatypes.JSONMap      `gorm:"type:jsonb" json:"content"`
	Direction CommunicationDirection `gorm:"type:varchar(16);not null" json:"direction"`
	Status    string                 `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt time.Time              `gorm:"index" json:"created_at"`
}

func (GuestCommunication) TableName() string { return "guest_communications" }

func (c *GuestCommunication) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
