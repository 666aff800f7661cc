package handlers

import (
	"errors"

	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/services"
	"github.com/arcane-tl/asset-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// User events.

// GET /api/v1/events
func (h *UserHandler) Events(c *fiber.Ctx) error {
	events, err := h.users.Events(c.Context(), currentUID(c))
	if err != nil {
		h.log.Errorw("list events failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to list events")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, events)
}

// POST /api/v1/events
func (h *UserHandler) AddEvent(c *fiber.Ctx) error {
	var e models.Event
	if err := c.BodyParser(&e); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	id, err := h.users.AddEvent(c.Context(), currentUID(c), e)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.Errorw("add event failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to add event")
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"id": id, "event": e})
}

// PATCH /api/v1/events/:eventId
func (h *UserHandler) UpdateEvent(c *fiber.Ctx) error {
	var in services.UpdateEventInput
	if err := c.BodyParser(&in); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	event, err := h.users.UpdateEvent(c.Context(), currentUID(c), c.Params("eventId"), in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrEventNotFound):
			return utils.JSONError(c, fiber.StatusNotFound, "event not found")
		}
		h.log.Errorw("update event failed", "eventId", c.Params("eventId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to update event")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, event)
}

// DELETE /api/v1/events/:eventId
func (h *UserHandler) RemoveEvent(c *fiber.Ctx) error {
	if err := h.users.RemoveEvent(c.Context(), currentUID(c), c.Params("eventId")); err != nil {
		h.log.Errorw("remove event failed", "eventId", c.Params("eventId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to remove event")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"removed": c.Params("eventId")})
}

// Asset events.

// GET /api/v1/assets/:assetId/events
func (h *AssetHandler) Events(c *fiber.Ctx) error {
	events, err := h.assets.AssetEvents(c.Context(), currentUID(c), c.Params("assetId"))
	if err != nil {
		h.log.Errorw("list asset events failed", "assetId", c.Params("assetId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to list events")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, events)
}

// POST /api/v1/assets/:assetId/events
func (h *AssetHandler) AddEvent(c *fiber.Ctx) error {
	var e models.Event
	if err := c.BodyParser(&e); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	id, err := h.assets.AddAssetEvent(c.Context(), currentUID(c), c.Params("assetId"), e)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.Errorw("add asset event failed", "assetId", c.Params("assetId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to add event")
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"id": id, "event": e})
}

// PATCH /api/v1/assets/:assetId/events/:eventId
func (h *AssetHandler) UpdateEvent(c *fiber.Ctx) error {
	var in services.UpdateEventInput
	if err := c.BodyParser(&in); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	event, err := h.assets.UpdateAssetEvent(c.Context(), currentUID(c), c.Params("assetId"), c.Params("eventId"), in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrEventNotFound):
			return utils.JSONError(c, fiber.StatusNotFound, "event not found")
		}
		h.log.Errorw("update asset event failed", "eventId", c.Params("eventId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to update event")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, event)
}

// DELETE /api/v1/assets/:assetId/events/:eventId
func (h *AssetHandler) RemoveEvent(c *fiber.Ctx) error {
	if err := h.assets.RemoveAssetEvent(c.Context(), currentUID(c), c.Params("assetId"), c.Params("eventId")); err != nil {
		h.log.Errorw("remove asset event failed", "eventId", c.Params("eventId"), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to remove event")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"removed": c.Params("eventId")})
}
