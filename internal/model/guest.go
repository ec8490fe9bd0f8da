package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RSVPStatus string

const (
	RSVPStatusPending   RSVPStatus = "pending"
	RSVPStatusConfirmed RSVPStatus = "confirmed"
	RSVPStatusDeclined  RSVPStatus = "declined"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPStatusPending, RSVPStatusConfirmed, RSVPStatusDeclined:
		return true
	}
	return false
}

// DeclinedArchiveReason is written when a declined RSVP archives the guest.
const DeclinedArchiveReason = "Declined RSVP"

type EmergencyContact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ContactDetails is the free-form contact bag stored in guests.contact_details.
type ContactDetails struct {
	Phone            string            `json:"phone,omitempty"`
	Address          string            `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergency_contact,omitempty"`
	Relationship     string            `json:"relationship,omitempty"`
	AddedByGuestID   string            `json:"added_by_guest_id,omitempty"`
}

type Guest struct {
	ID               uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           *uuid.UUID                         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	FirstName        string                             `gorm:"type:varchar(128)" json:"first_name"`
	LastName         string                             `gorm:"type:varchar(128)" json:"last_name"`
	DisplayName      string                             `gorm:"type:varchar(256)" json:"display_name"`
	Email            string                             `gorm:"type:varchar(320);not null;index" json:"email"`
	Phone            string                             `gorm:"type:varchar(64)" json:"phone"`
	RSVPStatus       RSVPStatus                         `gorm:"column:rsvp_status;type:varchar(16);not null;default:'pending';index" json:"rsvp_status"`
	RSVPRespondedAt  *time.Time                         `gorm:"column:rsvp_responded_at" json:"rsvp_responded_at,omitempty"`
	PlusOneName      string                             `gorm:"type:varchar(256)" json:"plus_one_name,omitempty"`
	PlusOneEmail     string                             `gorm:"type:varchar(320)" json:"plus_one_email,omitempty"`
	DietaryNeeds     StringSlice                        `gorm:"type:jsonb" json:"dietary_needs"`
	Allergies        StringSlice                        `gorm:"type:jsonb" json:"allergies"`
	TableAssignment  string                             `gorm:"type:varchar(64)" json:"table_assignment,omitempty"`
	SpecialRequests  string                             `gorm:"type:text" json:"special_requests,omitempty"`
	ContactDetails   datatypes.JSONType[ContactDetails] `gorm:"type:jsonb" json:"contact_details"`
	IsArchived       bool                               `gorm:"not null;default:false;index" json:"is_archived"`
	ArchivedAt       *time.Time                         `json:"archived_at,omitempty"`
	ArchiveReason    string                             `gorm:"type:varchar(256)" json:"archive_reason,omitempty"`
	InvitationSentAt *time.Time                         `json:"invitation_sent_at,omitempty"`
	RSVPDeadline     *time.Time                         `gorm:"column:rsvp_deadline" json:"rsvp_deadline,omitempty"`
	CreatedAt        time.Time                          `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at"`
}

func (Guest) TableName() string { return "guests" }

func (g *Guest) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.RSVPStatus == "" {
		g.RSVPStatus = RSVPStatusPending
	}
	return nil
}

// Contact returns the decoded contact details.
func (g *Guest) Contact() ContactDetails {
	return g.ContactDetails.Data()
}

func (g *Guest) SetContact(cd ContactDetails) {
	g.ContactDetails = datatypes.NewJSONType(cd)
}

// FullName joins first and last name.
func (g *Guest) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(g.FirstName) + " " + strings.TrimSpace(g.LastName))
}

// Name is the label shown in lists and exports.
func (g *Guest) Name() string {
	if name := strings.TrimSpace(g.DisplayName); name != "" {
		return name
	}
	return g.FullName()
}

func (g *Guest) IsLinked() bool {
	return g.UserID != nil && *g.UserID != uuid.Nil
}

func (g *Guest) HasDietaryInfo() bool {
	return len(g.DietaryNeeds) > 0 || len(g.Allergies) > 0
}

func (g *Guest) HasPlusOne() bool {
	return strings.TrimSpace(g.PlusOneName) != ""
}
