package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FileMetadata describes one attachment of an asset. Path is the canonical
// object-store key and must live under the owning asset's files prefix.
type FileMetadata struct {
	Name string `bson:"name" json:"name" validate:"required"`
	URL  string `bson:"url" json:"url"`
	Path string `bson:"path" json:"path" validate:"required"`
	Type string `bson:"type,omitempty" json:"type,omitempty"`
}

// Asset is a user-owned record for a tracked possession. Records are stored
// under users/{uid}/assets/{assetId}; the map key of Files is the generated
// file id.
type Asset struct {
	Name          string                  `bson:"name" json:"name" validate:"required"`
	Description   string                  `bson:"description,omitempty" json:"description,omitempty"`
	PurchasePrice float64                 `bson:"purchasePrice" json:"purchasePrice" validate:"gte=0"`
	CurrentValue  float64                 `bson:"currentValue" json:"currentValue" validate:"gte=0"`
	Debt          float64                 `bson:"debt,omitempty" json:"debt,omitempty" validate:"gte=0"`
	MonthlyCost   float64                 `bson:"monthlyCost,omitempty" json:"monthlyCost,omitempty" validate:"gte=0"`
	Category      string                  `bson:"category,omitempty" json:"category,omitempty"`
	Created       time.Time               `bson:"created" json:"created"`
	Files         map[string]FileMetadata `bson:"files,omitempty" json:"files,omitempty"`
}

// Validate rejects malformed asset documents at the store-facade boundary.
// Every file entry must point inside the asset's own storage prefix.
func (a *Asset) Validate(uid, assetID string) error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid asset record: %w", err)
	}
	prefix := FileStoragePrefix(uid, assetID)
	for id, f := range a.Files {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("invalid file entry %s: %w", id, err)
		}
		if !strings.HasPrefix(f.Path, prefix) {
			return fmt.Errorf("file entry %s: path %q outside %q", id, f.Path, prefix)
		}
	}
	return nil
}

// Record paths and storage keys share the same hierarchical namespace.

func UserPath(uid string) string {
	return "users/" + uid
}

func UserAssetsPath(uid string) string {
	return fmt.Sprintf("users/%s/assets", uid)
}

func AssetPath(uid, assetID string) string {
	return fmt.Sprintf("users/%s/assets/%s", uid, assetID)
}

func AssetFilesPath(uid, assetID string) string {
	return fmt.Sprintf("users/%s/assets/%s/files", uid, assetID)
}

// FileStoragePrefix is the object-store prefix for an asset's attachments,
// trailing slash included.
func FileStoragePrefix(uid, assetID string) string {
	return fmt.Sprintf("users/%s/assets/%s/files/", uid, assetID)
}

func AuditLogPath(uid string) string {
	return fmt.Sprintf("users/%s/auditLog", uid)
}

func PreferencesPath(uid string) string {
	return fmt.Sprintf("users/%s/preferences", uid)
}
