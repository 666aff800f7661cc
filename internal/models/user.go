package models

import (
	"fmt"
	"time"
)

// UserProfile holds the profile fields stored at the root of users/{uid}.
// The uid itself is the opaque identifier issued by the identity provider.
type UserProfile struct {
	FirstName string `bson:"firstName" json:"firstName" validate:"required"`
	LastName  string `bson:"lastName" json:"lastName" validate:"required"`
	Email     string `bson:"email" json:"email" validate:"required,email"`
	Mobile    string `bson:"mobile,omitempty" json:"mobile,omitempty"`
}

func (p *UserProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid user profile: %w", err)
	}
	return nil
}

// AuditEntry is one append-only entry under users/{uid}/auditLog.
type AuditEntry struct {
	Name   string    `bson:"name" json:"name" validate:"required"`
	Time   time.Time `bson:"time" json:"time"`
	Status string    `bson:"status" json:"status" validate:"required"`
}

// Preferences are per-user UI preferences, read and written through explicit
// accessors rather than ambient state.
type Preferences struct {
	Theme string `bson:"theme" json:"theme" validate:"oneof=light dark"`
}

func (p *Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}
