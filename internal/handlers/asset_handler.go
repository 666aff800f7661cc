package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/arcane-tl/asset-service/internal/reconcile"
	"github.com/arcane-tl/asset-service/internal/services"
	"github.com/arcane-tl/asset-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AssetHandler struct {
	assets *services.AssetService
	users  *services.UserService
	log    *zap.SugaredLogger
}

func NewAssetHandler(assets *services.AssetService, users *services.UserService, log *zap.SugaredLogger) *AssetHandler {
	return &AssetHandler{assets: assets, users: users, log: log}
}

func currentUID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}

// GET /api/v1/assets
func (h *AssetHandler) List(c *fiber.Ctx) error {
	assets, err := h.assets.ListAssets(c.Context(), currentUID(c))
	if err != nil {
		h.log.Errorw("list assets failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to list assets")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, assets)
}

// POST /api/v1/assets (multipart/form-data, optional 'image' part)
func (h *AssetHandler) Create(c *fiber.Ctx) error {
	uid := currentUID(c)
	in := services.CreateAssetInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
	}
	var err error
	if in.PurchasePrice, err = formFloat(c, "purchasePrice"); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	}
	if in.CurrentValue, err = formFloat(c, "currentValue"); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	}
	if in.Debt, err = formFloat(c, "debt"); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	}
	if in.MonthlyCost, err = formFloat(c, "monthlyCost"); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	}
	if fh, err := c.FormFile("image"); err == nil {
		nf, err := readUpload(fh)
		if err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "cannot read image")
		}
		in.MainImage = &nf
	}

	assetID, asset, err := h.assets.CreateAsset(c.Context(), uid, in)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.Errorw("create asset failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to save asset")
	}
	h.audit(c, uid, "asset.create", "success")
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"id": assetID, "asset": asset})
}

// GET /api/v1/assets/:assetId
func (h *AssetHandler) Get(c *fiber.Ctx) error {
	asset, err := h.assets.FetchAssetData(c.Context(), currentUID(c), c.Params("assetId"))
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			return utils.JSONError(c, fiber.StatusNotFound, "asset not found")
		}
		h.log.Errorw("fetch asset failed", "assetId", c.Params("assetId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to fetch asset")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, asset)
}

// PATCH /api/v1/assets/:assetId
func (h *AssetHandler) Update(c *fiber.Ctx) error {
	uid := currentUID(c)
	var in services.UpdateAssetInput
	if err := c.BodyParser(&in); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	asset, err := h.assets.UpdateAsset(c.Context(), uid, c.Params("assetId"), in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrAssetNotFound):
			return utils.JSONError(c, fiber.StatusNotFound, "asset not found")
		}
		h.log.Errorw("update asset failed", "assetId", c.Params("assetId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to update asset")
	}
	h.audit(c, uid, "asset.modify", "success")
	return utils.JSONSuccess(c, fiber.StatusOK, asset)
}

// DELETE /api/v1/assets/:assetId[?recursive=true]
func (h *AssetHandler) Delete(c *fiber.Ctx) error {
	uid := currentUID(c)
	assetID := c.Params("assetId")
	var err error
	if c.QueryBool("recursive") {
		err = h.assets.DeleteAssetRecursively(c.Context(), uid, assetID)
	} else {
		err = h.assets.DeleteItem(c.Context(), uid, "assets", assetID)
	}
	if err != nil {
		h.log.Errorw("delete asset failed", "assetId", assetID, "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to delete asset")
	}
	h.audit(c, uid, "asset.delete", "success")
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": assetID})
}

// PUT /api/v1/assets/:assetId/files (multipart: repeated 'files' parts,
// repeated 'delete' values with file ids)
func (h *AssetHandler) ReconcileFiles(c *fiber.Ctx) error {
	uid := currentUID(c)
	assetID := c.Params("assetId")
	form, err := c.MultipartForm()
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "multipart form required")
	}
	deleteIDs := form.Value["delete"]
	var newFiles []reconcile.NewFile
	for _, fh := range form.File["files"] {
		nf, err := readUpload(fh)
		if err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "cannot read file "+fh.Filename)
		}
		newFiles = append(newFiles, nf)
	}
	files, err := h.assets.ReconcileFiles(c.Context(), uid, assetID, deleteIDs, newFiles)
	if err != nil {
		h.log.Errorw("file reconciliation failed", "assetId", assetID, "error", err)
		h.audit(c, uid, "asset.files", "failure")
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to update asset files")
	}
	h.audit(c, uid, "asset.files", "success")
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"files": files})
}

// GET /api/v1/assets/:assetId/files/:fileId/url
func (h *AssetHandler) FileURL(c *fiber.Ctx) error {
	url, err := h.assets.FileDownloadURL(c.Context(), currentUID(c), c.Params("assetId"), c.Params("fileId"))
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			return utils.JSONError(c, fiber.StatusNotFound, "file not found")
		}
		h.log.Errorw("resolve file url failed", "fileId", c.Params("fileId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to resolve url")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"url": url})
}

// GET /api/v1/categories
func (h *AssetHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.assets.FetchAssetCategories(c.Context())
	if err != nil {
		h.log.Errorw("fetch categories failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to fetch categories")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, cats)
}

type accessReq struct {
	Permission string `json:"permission"`
}

// PUT /api/v1/assets/:assetId/access/:uid
func (h *AssetHandler) GrantAccess(c *fiber.Ctx) error {
	var req accessReq
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := h.assets.GrantAccess(c.Context(), c.Params("assetId"), c.Params("uid"), req.Permission); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.Errorw("grant access failed", "assetId", c.Params("assetId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to grant access")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"granted": c.Params("uid")})
}

// DELETE /api/v1/assets/:assetId/access/:uid
func (h *AssetHandler) RevokeAccess(c *fiber.Ctx) error {
	if err := h.assets.RevokeAccess(c.Context(), c.Params("assetId"), c.Params("uid")); err != nil {
		h.log.Errorw("revoke access failed", "assetId", c.Params("assetId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to revoke access")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"revoked": c.Params("uid")})
}

func (h *AssetHandler) audit(c *fiber.Ctx, uid, name, status string) {
	if _, err := h.users.AppendAudit(c.Context(), uid, name, status); err != nil {
		h.log.Warnw("audit append failed", "name", name, "error", err)
	}
}

func formFloat(c *fiber.Ctx, field string) (float64, error) {
	raw := c.FormValue(field)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(field + " must be numeric")
	}
	return v, nil
}

func readUpload(fh *multipart.FileHeader) (reconcile.NewFile, error) {
	f, err := fh.Open()
	if err != nil {
		return reconcile.NewFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return reconcile.NewFile{}, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return reconcile.NewFile{Name: fh.Filename, Type: ct, Data: data}, nil
}
