package models

import (
	"fmt"
	"time"
)

// Event is one scheduled or logged occurrence attached to a user or to an
// asset (a service appointment, an inspection, a renewal date).
type Event struct {
	Name        string    `bson:"name" json:"name" validate:"required"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Time        time.Time `bson:"time" json:"time"`
}

func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	return nil
}

func UserEventsPath(uid string) string {
	return fmt.Sprintf("users/%s/events", uid)
}

func AssetEventsPath(uid, assetID string) string {
	return fmt.Sprintf("users/%s/assets/%s/events", uid, assetID)
}
