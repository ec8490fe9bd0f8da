package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account mirrors an identity held by the authentication provider.
// Profile carries the provider's free-form metadata (first_name, last_name,
// display_name, phone).
type Account struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string            `gorm:"type:varchar(320);not null" json:"email"`
	Profile   datatypes.JSONMap `gorm:"type:jsonb" json:"profile,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ProfileString reads a string value from the profile metadata.
func (a *Account) ProfileString(key string) string {
	if a.Profile == nil {
		return ""
	}
	v, ok := a.Profile[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
