package routes

import (
	"github.com/agencianocode/talent-digital-io/handlers"
	"github.com/agencianocode/talent-digital-io/middleware"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	uploads := api.Group("/uploads", middleware.Protected())
	uploads.Post("/attachment-signature", handlers.GenerateAttachmentSignature)
}
