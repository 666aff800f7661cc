package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arcane-tl/asset-service/internal/cache"
	"github.com/arcane-tl/asset-service/internal/metrics"
	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/recordstore"
	"github.com/arcane-tl/asset-service/internal/reconcile"
	"github.com/arcane-tl/asset-service/internal/storage"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrInvalidInput  = errors.New("invalid input")
)

var validate = validator.New()

// AssetService composes the two store facades and the reconciler into the
// asset CRUD surface.
type AssetService struct {
	records    recordstore.Store
	objects    storage.ObjectStore
	reconciler *reconcile.Reconciler
	urls       cache.URLCache
	urlTTL     time.Duration
	log        *zap.SugaredLogger
}

func NewAssetService(records recordstore.Store, objects storage.ObjectStore, reconciler *reconcile.Reconciler, urls cache.URLCache, urlTTL time.Duration, log *zap.SugaredLogger) *AssetService {
	return &AssetService{
		records:    records,
		objects:    objects,
		reconciler: reconciler,
		urls:       urls,
		urlTTL:     urlTTL,
		log:        log,
	}
}

type CreateAssetInput struct {
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	PurchasePrice float64 `json:"purchasePrice" validate:"gte=0"`
	CurrentValue  float64 `json:"currentValue" validate:"gte=0"`
	Debt          float64 `json:"debt" validate:"gte=0"`
	MonthlyCost   float64 `json:"monthlyCost" validate:"gte=0"`
	Category      string  `json:"category"`
	// MainImage, when set, is uploaded and referenced before the record is
	// written.
	MainImage *reconcile.NewFile `json:"-"`
}

// CreateAsset writes a new asset record under a generated id. The optional
// main image is uploaded first; an upload failure aborts the whole create.
func (s *AssetService) CreateAsset(ctx context.Context, uid string, in CreateAssetInput) (string, *models.Asset, error) {
	if err := validate.Struct(in); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	assetID := s.records.PushChild(models.UserAssetsPath(uid))
	asset := models.Asset{
		Name:          in.Name,
		Description:   in.Description,
		PurchasePrice: in.PurchasePrice,
		CurrentValue:  in.CurrentValue,
		Debt:          in.Debt,
		MonthlyCost:   in.MonthlyCost,
		Category:      in.Category,
		Created:       time.Now().UTC(),
		Files:         map[string]models.FileMetadata{},
	}
	if in.MainImage != nil {
		meta, err := s.uploadAttachment(ctx, uid, assetID, *in.MainImage)
		if err != nil {
			return "", nil, err
		}
		fileID := s.records.PushChild(models.AssetFilesPath(uid, assetID))
		asset.Files[fileID] = meta
	}
	if err := s.records.Set(ctx, models.AssetPath(uid, assetID), asset); err != nil {
		return "", nil, fmt.Errorf("write asset: %w", err)
	}
	return assetID, &asset, nil
}

// uploadAttachment stores one file under the asset's prefix. Image payloads
// get a best-effort thumbnail rendition next to the original.
func (s *AssetService) uploadAttachment(ctx context.Context, uid, assetID string, nf reconcile.NewFile) (models.FileMetadata, error) {
	key := models.FileStoragePrefix(uid, assetID) + nf.Name
	url, err := s.objects.Upload(ctx, key, nf.Type, nf.Data)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("upload %s: %w", nf.Name, err)
	}
	if strings.HasPrefix(nf.Type, "image/") {
		if thumb, err := thumbnailJPEG(nf.Data); err == nil {
			if _, err := s.objects.Upload(ctx, key+"_thumb.jpg", "image/jpeg", thumb); err != nil {
				s.log.Warnw("thumbnail upload failed", "key", key, "error", err)
			}
		}
	}
	ct := nf.Type
	if ct == "" {
		ct = "application/octet-stream"
	}
	return models.FileMetadata{Name: nf.Name, URL: url, Path: key, Type: ct}, nil
}

// FetchAssetData reads one asset record, rejecting malformed documents.
func (s *AssetService) FetchAssetData(ctx context.Context, uid, assetID string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.records.Fetch(ctx, models.AssetPath(uid, assetID), &asset); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	if err := asset.Validate(uid, assetID); err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListedAsset pairs a record with its generated id for list responses.
type ListedAsset struct {
	ID string `json:"id"`
	models.Asset
}

// ListAssets returns the user's assets sorted by creation time. Malformed
// records are skipped with a warning instead of failing the whole list.
func (s *AssetService) ListAssets(ctx context.Context, uid string) ([]ListedAsset, error) {
	raw := map[string]models.Asset{}
	if err := s.records.Fetch(ctx, models.UserAssetsPath(uid), &raw); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return []ListedAsset{}, nil
		}
		return nil, err
	}
	out := make([]ListedAsset, 0, len(raw))
	for id, a := range raw {
		if err := a.Validate(uid, id); err != nil {
			s.log.Warnw("skipping malformed asset record", "assetId", id, "error", err)
			continue
		}
		out = append(out, ListedAsset{ID: id, Asset: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

type UpdateAssetInput struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	PurchasePrice *float64 `json:"purchasePrice"`
	CurrentValue  *float64 `json:"currentValue"`
	Debt          *float64 `json:"debt"`
	MonthlyCost   *float64 `json:"monthlyCost"`
	Category      *string  `json:"category"`
}

func (in UpdateAssetInput) fields() (map[string]any, error) {
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
	for field, v := range map[string]*float64{
		"purchasePrice": in.PurchasePrice,
		"currentValue":  in.CurrentValue,
		"debt":          in.Debt,
		"monthlyCost":   in.MonthlyCost,
	} {
		if v == nil {
			continue
		}
		if *v < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, field)
		}
		set[field] = *v
	}
	if in.Category != nil {
		set["category"] = *in.Category
	}
	return set, nil
}

// UpdateAsset merge-writes the provided fields. Last writer wins; there is no
// optimistic concurrency control.
func (s *AssetService) UpdateAsset(ctx context.Context, uid, assetID string, in UpdateAssetInput) (*models.Asset, error) {
	set, err := in.fields()
	if err != nil {
		return nil, err
	}
	if len(set) > 0 {
		if err := s.records.Update(ctx, models.AssetPath(uid, assetID), set); err != nil {
			return nil, fmt.Errorf("update asset: %w", err)
		}
	}
	return s.FetchAssetData(ctx, uid, assetID)
}

// DeleteItem removes users/{uid}/{itemType}/{itemId}. For assets it first
// enumerates the attached files and best-effort deletes each storage object;
// a missing record skips straight to the removal. A crash between the two
// steps leaves orphaned storage objects.
func (s *AssetService) DeleteItem(ctx context.Context, uid, itemType, itemID string) error {
	itemPath := fmt.Sprintf("users/%s/%s/%s", uid, itemType, itemID)
	if itemType == "assets" {
		var rec struct {
			Files map[string]models.FileMetadata `bson:"files"`
		}
		err := s.records.Fetch(ctx, itemPath, &rec)
		switch {
		case err == nil:
			for id, f := range rec.Files {
				if f.Path == "" {
					continue
				}
				if err := s.objects.Delete(ctx, f.Path); err != nil {
					s.log.Warnw("file delete failed", "fileId", id, "path", f.Path, "error", err)
				}
			}
		case errors.Is(err, recordstore.ErrNotFound):
			// nothing to enumerate, proceed to removal
		default:
			return err
		}
	}
	return s.records.Remove(ctx, itemPath)
}

// DeleteAssetRecursively removes every storage object under the asset's
// prefix (thumbnails and strays included), then the record.
func (s *AssetService) DeleteAssetRecursively(ctx context.Context, uid, assetID string) error {
	prefix := fmt.Sprintf("users/%s/assets/%s/", uid, assetID)
	if err := s.objects.DeletePrefix(ctx, prefix); err != nil {
		s.log.Warnw("recursive storage delete incomplete", "assetId", assetID, "error", err)
	}
	return s.records.Remove(ctx, models.AssetPath(uid, assetID))
}

// ReconcileFiles converges the asset's attachments to the requested set.
func (s *AssetService) ReconcileFiles(ctx context.Context, uid, assetID string, deleteIDs []string, newFiles []reconcile.NewFile) (map[string]models.FileMetadata, error) {
	metrics.ReconcileRunsTotal.Inc()
	files, err := s.reconciler.Reconcile(ctx, uid, assetID, deleteIDs, newFiles)
	if err != nil {
		metrics.ReconcileFailuresTotal.Inc()
		return nil, err
	}
	return files, nil
}

// FetchAssetCategories reads the fixed category list.
func (s *AssetService) FetchAssetCategories(ctx context.Context) ([]string, error) {
	raw := map[string]string{}
	if err := s.records.Fetch(ctx, "assetCategories", &raw); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// FileDownloadURL resolves a fresh download URL for one attachment, cached
// for the presign lifetime.
func (s *AssetService) FileDownloadURL(ctx context.Context, uid, assetID, fileID string) (string, error) {
	var meta models.FileMetadata
	path := models.AssetFilesPath(uid, assetID) + "/" + fileID
	if err := s.records.Fetch(ctx, path, &meta); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return "", ErrAssetNotFound
		}
		return "", err
	}
	if s.urls != nil {
		if url, err := s.urls.Get(ctx, meta.Path); err == nil && url != "" {
			return url, nil
		}
	}
	url, err := s.objects.DownloadURL(ctx, meta.Path)
	if err != nil {
		return "", err
	}
	if s.urls != nil {
		if err := s.urls.Set(ctx, meta.Path, url, s.urlTTL); err != nil {
			s.log.Warnw("url cache write failed", "path", meta.Path, "error", err)
		}
	}
	return url, nil
}

// GrantAccess records a share permission on both sides of the access-list
// bookkeeping.
func (s *AssetService) GrantAccess(ctx context.Context, assetID, granteeUID, permission string) error {
	if permission == "" {
		return fmt.Errorf("%w: permission required", ErrInvalidInput)
	}
	return s.records.MultiUpdate(ctx, map[string]any{
		fmt.Sprintf("userAssets/%s/%s", granteeUID, assetID): permission,
		fmt.Sprintf("assetShares/%s/%s", assetID, granteeUID): permission,
	})
}

// RevokeAccess clears both bookkeeping entries.
func (s *AssetService) RevokeAccess(ctx context.Context, assetID, granteeUID string) error {
	return s.records.MultiUpdate(ctx, map[string]any{
		fmt.Sprintf("userAssets/%s/%s", granteeUID, assetID): nil,
		fmt.Sprintf("assetShares/%s/%s", assetID, granteeUID): nil,
	})
}
