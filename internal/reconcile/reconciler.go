package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/recordstore"
	"github.com/arcane-tl/asset-service/internal/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// NewFile is a freshly picked local file to attach to an asset.
type NewFile struct {
	Name string
	Type string
	Data []byte
}

// Options make the swallow-vs-propagate choices of the reconciliation
// explicit instead of burying them in call sites.
type Options struct {
	// VerifyExisting probes surviving entries and silently drops the ones
	// whose storage object is gone (self-healing against orphaned metadata).
	VerifyExisting bool
	// AbortOnDeleteFailure turns collected deletion failures into a hard
	// error before any upload is attempted. Off by default: deletions are
	// best-effort and only logged.
	AbortOnDeleteFailure bool
}

// Reconciler converges the object store and the record store to the desired
// file set of one asset. Deletions run before uploads; uploads are sequential
// and the first failure aborts the remaining batch, leaving already-uploaded
// objects without a record reference (a known inconsistency window). The
// record write happens exactly once, after everything else succeeded.
type Reconciler struct {
	records recordstore.Store
	objects storage.ObjectStore
	opts    Options
	log     *zap.SugaredLogger
}

func New(records recordstore.Store, objects storage.ObjectStore, opts Options, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{records: records, objects: objects, opts: opts, log: log}
}

// Reconcile applies the requested deletions and additions and returns the
// converged files map as written to the record store.
func (r *Reconciler) Reconcile(ctx context.Context, uid, assetID string, deleteIDs []string, newFiles []NewFile) (map[string]models.FileMetadata, error) {
	filesPath := models.AssetFilesPath(uid, assetID)

	current := map[string]models.FileMetadata{}
	if err := r.records.Fetch(ctx, filesPath, &current); err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("fetch files: %w", err)
	}

	toDelete := make(map[string]bool, len(deleteIDs))
	for _, id := range deleteIDs {
		toDelete[id] = true
	}

	if err := r.deletePhase(ctx, current, deleteIDs); err != nil {
		return nil, err
	}

	result := make(map[string]models.FileMetadata, len(current))
	for id, f := range current {
		if toDelete[id] {
			continue
		}
		if r.opts.VerifyExisting && !r.objects.Exists(ctx, f.Path) {
			r.log.Warnw("dropping stale file entry", "assetId", assetID, "fileId", id, "path", f.Path)
			continue
		}
		result[id] = f
	}

	prefix := models.FileStoragePrefix(uid, assetID)
	for _, nf := range newFiles {
		key := prefix + nf.Name
		url, err := r.objects.Upload(ctx, key, nf.Type, nf.Data)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", nf.Name, err)
		}
		ct := nf.Type
		if ct == "" {
			ct = defaultContentType
		}
		id := r.records.PushChild(filesPath)
		result[id] = models.FileMetadata{Name: nf.Name, URL: url, Path: key, Type: ct}
	}

	if err := r.records.Set(ctx, filesPath, result); err != nil {
		return nil, fmt.Errorf("commit files: %w", err)
	}
	return result, nil
}

// deletePhase issues one object-store delete per requested id, concurrently,
// and aggregates failures rather than stopping at the first.
func (r *Reconciler) deletePhase(ctx context.Context, current map[string]models.FileMetadata, deleteIDs []string) error {
	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, id := range deleteIDs {
		f, ok := current[id]
		if !ok || f.Path == "" {
			continue
		}
		wg.Add(1)
		go func(id string, f models.FileMetadata) {
			defer wg.Done()
			if err := r.objects.Delete(ctx, f.Path); err != nil {
				r.log.Warnw("file delete failed", "fileId", id, "path", f.Path, "error", err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", id, err))
				mu.Unlock()
			}
		}(id, f)
	}
	wg.Wait()
	if r.opts.AbortOnDeleteFailure && errs != nil {
		return errs
	}
	return nil
}
