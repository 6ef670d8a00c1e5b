package routes

import (
	"github.com/agencianocode/talent-digital-io/handlers"
	"github.com/agencianocode/talent-digital-io/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", handlers.GetConversations)
	conversations.Post("", handlers.CreateOrGetConversation)
	conversations.Get("/unread-count", handlers.GetUnreadCount)
	conversations.Get("/:conversationId/messages", handlers.GetConversationMessages)
	conversations.Patch("/:conversationId/read", handlers.MarkConversationRead)
	conversations.Patch("/:conversationId/unread", handlers.MarkConversationUnread)
	conversations.Patch("/:conversationId/archive", handlers.ArchiveConversation)
	conversations.Patch("/:conversationId/unarchive", handlers.UnarchiveConversation)
	conversations.Delete("/:conversationId", handlers.DeleteConversation)

	messages := api.Group("/messages", middleware.Protected())
	messages.Post("", handlers.SendMessage)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
