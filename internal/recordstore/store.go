package recordstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidPath = errors.New("invalid record path")
)

// Store is a CRUD facade over a hierarchical path namespace, e.g.
// users/{uid}/assets/{assetId}/files/{fileId}. Errors from the backend
// propagate to the caller; no call is retried.
type Store interface {
	// Fetch decodes the value at path into out, or returns ErrNotFound.
	Fetch(ctx context.Context, path string, out any) error
	// Set replaces the value at path, creating intermediate nodes as needed.
	Set(ctx context.Context, path string, value any) error
	// Update shallow-merges partial at path. A nil value removes that key.
	Update(ctx context.Context, path string, partial map[string]any) error
	// Remove deletes the value at path.
	Remove(ctx context.Context, path string) error
	// PushChild returns a freshly generated child id under parentPath.
	// It performs no write; callers Set the child explicitly.
	PushChild(parentPath string) string
	// MultiUpdate applies a best-effort multi-path update. A nil value
	// removes that path. Failures are aggregated, not transactional.
	MultiUpdate(ctx context.Context, updates map[string]any) error
}
