package handlers

import (
	"errors"

	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/services"
	"github.com/arcane-tl/asset-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	users *services.UserService
	log   *zap.SugaredLogger
}

func NewUserHandler(users *services.UserService, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// POST /api/v1/profile
func (h *UserHandler) Register(c *fiber.Ctx) error {
	uid := currentUID(c)
	var profile models.UserProfile
	if err := c.BodyParser(&profile); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := h.users.Register(c.Context(), uid, profile); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.Errorw("register profile failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to register profile")
	}
	if _, err := h.users.AppendAudit(c.Context(), uid, "user.register", "success"); err != nil {
		h.log.Warnw("audit append failed", "error", err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, profile)
}

// GET /api/v1/profile
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.users.GetProfile(c.Context(), currentUID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return utils.JSONError(c, fiber.StatusNotFound, "user not found")
		}
		h.log.Errorw("get profile failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to fetch profile")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, profile)
}

// PATCH /api/v1/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var in services.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	profile, err := h.users.UpdateProfile(c.Context(), currentUID(c), in)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return utils.JSONError(c, fiber.StatusNotFound, "user not found")
		}
		h.log.Errorw("update profile failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to update profile")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, profile)
}

// DELETE /api/v1/profile
func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	uid := currentUID(c)
	if err := h.users.RemoveUserCompletely(c.Context(), uid); err != nil {
		h.log.Errorw("remove user failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to remove user")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"removed": uid})
}

// GET /api/v1/profile/audit
func (h *UserHandler) AuditLog(c *fiber.Ctx) error {
	entries, err := h.users.AuditLog(c.Context(), currentUID(c))
	if err != nil {
		h.log.Errorw("audit log fetch failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to fetch audit log")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, entries)
}

// GET /api/v1/profile/preferences
func (h *UserHandler) GetPreferences(c *fiber.Ctx) error {
	prefs, err := h.users.Preferences(c.Context(), currentUID(c))
	if err != nil {
		h.log.Errorw("preferences fetch failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to fetch preferences")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, prefs)
}

// PUT /api/v1/profile/preferences
func (h *UserHandler) SetPreferences(c *fiber.Ctx) error {
	var prefs models.Preferences
	if err := c.BodyParser(&prefs); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := h.users.SetPreferences(c.Context(), currentUID(c), prefs); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.Errorw("preferences update failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to update preferences")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, prefs)
}
