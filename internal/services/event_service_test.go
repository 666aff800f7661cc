package services

import (
	"context"
	"testing"
	"time"

	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndUpdateUserEvent(t *testing.T) {
	records := newStubRecords(&journal{})
	svc := newTestUserService(records)
	ctx := context.Background()
	when := time.Now().UTC().Truncate(time.Millisecond)

	id, err := svc.AddEvent(ctx, "u1", models.Event{Name: "Inspection", Time: when})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, ok := records.data[models.UserEventsPath("u1")+"/"+id].(models.Event)
	require.True(t, ok)
	assert.Equal(t, "Inspection", stored.Name)

	desc := "annual vehicle inspection"
	updated, err := svc.UpdateEvent(ctx, "u1", id, UpdateEventInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Inspection", updated.Name)
	assert.Equal(t, desc, updated.Description)
}

func TestAddEventRejectsInvalid(t *testing.T) {
	svc := newTestUserService(newStubRecords(&journal{}))
	_, err := svc.AddEvent(context.Background(), "u1", models.Event{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateEventMissingReturnsNotFound(t *testing.T) {
	svc := newTestUserService(newStubRecords(&journal{}))
	name := "Renewal"
	_, err := svc.UpdateEvent(context.Background(), "u1", "nope", UpdateEventInput{Name: &name})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestUserEventsChronologicalOrder(t *testing.T) {
	records := newStubRecords(&journal{})
	svc := newTestUserService(records)
	now := time.Now().UTC().Truncate(time.Millisecond)

	records.data[models.UserEventsPath("u1")] = map[string]models.Event{
		"e2": {Name: "Later", Time: now},
		"e1": {Name: "Earlier", Time: now.Add(-time.Hour)},
	}

	out, err := svc.Events(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "e1", out[0].ID)
	assert.Equal(t, "e2", out[1].ID)

	empty, err := svc.Events(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAssetEventLifecycle(t *testing.T) {
	j := &journal{}
	records := newStubRecords(j)
	svc := newTestAssetService(records, newStubObjects(j), nil)
	ctx := context.Background()

	id, err := svc.AddAssetEvent(ctx, "u1", "a1", models.Event{Name: "Service", Time: time.Now().UTC()})
	require.NoError(t, err)

	_, ok := records.data[models.AssetEventsPath("u1", "a1")+"/"+id]
	require.True(t, ok)

	require.NoError(t, svc.RemoveAssetEvent(ctx, "u1", "a1", id))
	_, ok = records.data[models.AssetEventsPath("u1", "a1")+"/"+id]
	assert.False(t, ok)
}
