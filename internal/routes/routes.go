package routes

import (
	"github.com/arcane-tl/asset-service/internal/auth"
	"github.com/arcane-tl/asset-service/internal/handlers"
	"github.com/arcane-tl/asset-service/internal/middlewares"
	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, verifier *auth.JWTVerifier, assets *handlers.AssetHandler, users *handlers.UserHandler, uploadLimit fiber.Handler) {
	api := app.Group("/api/v1", middlewares.JWTAuth(verifier))

	api.Get("/categories", assets.Categories)

	api.Get("/assets", assets.List)
	api.Post("/assets", uploadLimit, assets.Create)
	api.Get("/assets/:assetId", assets.Get)
	api.Patch("/assets/:assetId", assets.Update)
	api.Delete("/assets/:assetId", assets.Delete)
	api.Put("/assets/:assetId/files", uploadLimit, assets.ReconcileFiles)
	api.Get("/assets/:assetId/files/:fileId/url", assets.FileURL)
	api.Put("/assets/:assetId/access/:uid", assets.GrantAccess)
	api.Delete("/assets/:assetId/access/:uid", assets.RevokeAccess)
	api.Get("/assets/:assetId/events", assets.Events)
	api.Post("/assets/:assetId/events", assets.AddEvent)
	api.Patch("/assets/:assetId/events/:eventId", assets.UpdateEvent)
	api.Delete("/assets/:assetId/events/:eventId", assets.RemoveEvent)

	api.Get("/events", users.Events)
	api.Post("/events", users.AddEvent)
	api.Patch("/events/:eventId", users.UpdateEvent)
	api.Delete("/events/:eventId", users.RemoveEvent)

	api.Post("/profile", users.Register)
	api.Get("/profile", users.GetProfile)
	api.Patch("/profile", users.UpdateProfile)
	api.Delete("/profile", users.DeleteAccount)
	api.Get("/profile/audit", users.AuditLog)
	api.Get("/profile/preferences", users.GetPreferences)
	api.Put("/profile/preferences", users.SetPreferences)
}
