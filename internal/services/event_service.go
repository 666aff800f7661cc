package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/recordstore"
)

var ErrEventNotFound = errors.New("event not found")

// ListedEvent pairs an event with its generated id for list responses.
type ListedEvent struct {
	ID string `json:"id"`
	models.Event
}

type UpdateEventInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Time        *time.Time `json:"time"`
}

func (in UpdateEventInput) fields() (map[string]any, error) {
	set := map[string]any{}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		set["name"] = *in.Name
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Time != nil {
		set["time"] = *in.Time
	}
	return set, nil
}

// eventOps is the shared add/list/update/remove logic under one events path.
type eventOps struct {
	records recordstore.Store
}

func (o eventOps) add(ctx context.Context, eventsPath string, e models.Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	id := o.records.PushChild(eventsPath)
	if err := o.records.Set(ctx, eventsPath+"/"+id, e); err != nil {
		return "", fmt.Errorf("write event: %w", err)
	}
	return id, nil
}

func (o eventOps) list(ctx context.Context, eventsPath string) ([]ListedEvent, error) {
	raw := map[string]models.Event{}
	if err := o.records.Fetch(ctx, eventsPath, &raw); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return []ListedEvent{}, nil
		}
		return nil, err
	}
	out := make([]ListedEvent, 0, len(raw))
	for id, e := range raw {
		out = append(out, ListedEvent{ID: id, Event: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (o eventOps) update(ctx context.Context, eventsPath, eventID string, in UpdateEventInput) (*models.Event, error) {
	set, err := in.fields()
	if err != nil {
		return nil, err
	}
	eventPath := eventsPath + "/" + eventID
	var existing models.Event
	if err := o.records.Fetch(ctx, eventPath, &existing); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if len(set) > 0 {
		if err := o.records.Update(ctx, eventPath, set); err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
		if err := o.records.Fetch(ctx, eventPath, &existing); err != nil {
			return nil, err
		}
	}
	return &existing, nil
}

func (o eventOps) remove(ctx context.Context, eventsPath, eventID string) error {
	return o.records.Remove(ctx, eventsPath+"/"+eventID)
}

// User events live next to the audit log under users/{uid}/events.

func (s *UserService) AddEvent(ctx context.Context, uid string, e models.Event) (string, error) {
	return eventOps{s.records}.add(ctx, models.UserEventsPath(uid), e)
}

func (s *UserService) Events(ctx context.Context, uid string) ([]ListedEvent, error) {
	return eventOps{s.records}.list(ctx, models.UserEventsPath(uid))
}

func (s *UserService) UpdateEvent(ctx context.Context, uid, eventID string, in UpdateEventInput) (*models.Event, error) {
	return eventOps{s.records}.update(ctx, models.UserEventsPath(uid), eventID, in)
}

func (s *UserService) RemoveEvent(ctx context.Context, uid, eventID string) error {
	return eventOps{s.records}.remove(ctx, models.UserEventsPath(uid), eventID)
}

// Asset events live under the owning asset record and disappear with it.

func (s *AssetService) AddAssetEvent(ctx context.Context, uid, assetID string, e models.Event) (string, error) {
	return eventOps{s.records}.add(ctx, models.AssetEventsPath(uid, assetID), e)
}

func (s *AssetService) AssetEvents(ctx context.Context, uid, assetID string) ([]ListedEvent, error) {
	return eventOps{s.records}.list(ctx, models.AssetEventsPath(uid, assetID))
}

func (s *AssetService) UpdateAssetEvent(ctx context.Context, uid, assetID, eventID string, in UpdateEventInput) (*models.Event, error) {
	return eventOps{s.records}.update(ctx, models.AssetEventsPath(uid, assetID), eventID, in)
}

func (s *AssetService) RemoveAssetEvent(ctx context.Context, uid, assetID, eventID string) error {
	return eventOps{s.records}.remove(ctx, models.AssetEventsPath(uid, assetID), eventID)
}
