package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/recordstore"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

const defaultTheme = "light"

// UserService owns profile, preference and audit-log records under
// users/{uid}. Authentication itself is the identity provider's job; the uid
// arrives already verified.
type UserService struct {
	records recordstore.Store
	log     *zap.SugaredLogger
}

func NewUserService(records recordstore.Store, log *zap.SugaredLogger) *UserService {
	return &UserService{records: records, log: log}
}

// Register writes the initial profile after the first sign-in.
func (s *UserService) Register(ctx context.Context, uid string, profile models.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.records.Set(ctx, models.UserPath(uid), profile)
}

func (s *UserService) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.records.Fetch(ctx, models.UserPath(uid), &p); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

type UpdateProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Mobile    *string `json:"mobile"`
}

// UpdateProfile merge-writes the provided profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, in UpdateProfileInput) (*models.UserProfile, error) {
	set := map[string]any{}
	if in.FirstName != nil {
		set["firstName"] = *in.FirstName
	}
	if in.LastName != nil {
		set["lastName"] = *in.LastName
	}
	if in.Email != nil {
		set["email"] = *in.Email
	}
	if in.Mobile != nil {
		set["mobile"] = *in.Mobile
	}
	if len(set) > 0 {
		if err := s.records.Update(ctx, models.UserPath(uid), set); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.GetProfile(ctx, uid)
}

// RemoveUserCompletely clears the user's record tree and both sides of the
// access-list bookkeeping via a best-effort multi-path update.
func (s *UserService) RemoveUserCompletely(ctx context.Context, uid string) error {
	shared := map[string]string{}
	err := s.records.Fetch(ctx, "userAssets/"+uid, &shared)
	if err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		return err
	}
	updates := map[string]any{
		models.UserPath(uid): nil,
		"userAssets/" + uid:  nil,
	}
	for assetID := range shared {
		updates[fmt.Sprintf("assetShares/%s/%s", assetID, uid)] = nil
	}
	return s.records.MultiUpdate(ctx, updates)
}

// AuditedEntry pairs an audit-log entry with its generated id.
type AuditedEntry struct {
	ID string `json:"id"`
	models.AuditEntry
}

// AppendAudit appends one {name, time, status} entry and returns its id.
func (s *UserService) AppendAudit(ctx context.Context, uid, name, status string) (string, error) {
	entry := models.AuditEntry{Name: name, Time: time.Now().UTC(), Status: status}
	id := s.records.PushChild(models.AuditLogPath(uid))
	if err := s.records.Set(ctx, models.AuditLogPath(uid)+"/"+id, entry); err != nil {
		return "", fmt.Errorf("append audit entry: %w", err)
	}
	return id, nil
}

// AuditLog returns the user's audit entries in chronological order.
func (s *UserService) AuditLog(ctx context.Context, uid string) ([]AuditedEntry, error) {
	raw := map[string]models.AuditEntry{}
	if err := s.records.Fetch(ctx, models.AuditLogPath(uid), &raw); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return []AuditedEntry{}, nil
		}
		return nil, err
	}
	out := make([]AuditedEntry, 0, len(raw))
	for id, e := range raw {
		out = append(out, AuditedEntry{ID: id, AuditEntry: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Preferences returns the stored preferences, defaulting the theme when the
// user has never set one.
func (s *UserService) Preferences(ctx context.Context, uid string) (*models.Preferences, error) {
	var p models.Preferences
	err := s.records.Fetch(ctx, models.PreferencesPath(uid), &p)
	if errors.Is(err, recordstore.ErrNotFound) {
		return &models.Preferences{Theme: defaultTheme}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return &p, nil
}

func (s *UserService) SetPreferences(ctx context.Context, uid string, p models.Preferences) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.records.Update(ctx, models.PreferencesPath(uid), map[string]any{"theme": p.Theme})
}
