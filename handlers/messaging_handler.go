package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	configs "github.com/agencianocode/talent-digital-io/configs"
	"github.com/agencianocode/talent-digital-io/database"
	"github.com/agencianocode/talent-digital-io/messaging"
	"github.com/agencianocode/talent-digital-io/models"
	"github.com/agencianocode/talent-digital-io/websocket"
	"github.com/go-playground/validator/v10"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var validate = validator.New()

func currentUserID(c *fiber.Ctx) uuid.UUID {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	return userID
}

func store() messaging.Store {
	return messaging.NewGormStore(database.DB)
}

// GetConversations returns the user's derived conversation list. A read
// failure degrades to an empty list instead of an error page.
func GetConversations(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conversations, err := messaging.LoadConversations(c.Context(), store(), userID)
	if err != nil {
		log.Printf("Failed to load conversations for %s: %v", userID, err)
		return c.JSON(fiber.Map{"conversations": []messaging.Conversation{}})
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

func GetUnreadCount(c *fiber.Ctx) error {
	userID := currentUserID(c)

	count, err := messaging.UnreadCount(c.Context(), store(), userID)
	if err != nil {
		log.Printf("Failed to count unread messages for %s: %v", userID, err)
		return c.JSON(fiber.Map{"unread_count": 0})
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

func GetConversationMessages(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	messages, err := store().ListConversationMessages(c.Context(), conversationID)
	if err != nil {
		log.Printf("Failed to fetch messages for %s: %v", conversationID, err)
		return c.JSON([]models.Message{})
	}
	return c.JSON(messages)
}

type CreateConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Type        string `json:"type" validate:"omitempty,oneof=direct application profile_contact service_inquiry"`
	ContextID   string `json:"context_id,omitempty"`
}

// CreateOrGetConversation resolves the conversation id for a participant
// pair. No message row is written; the conversation becomes real once the
// first message is sent with the returned id.
func CreateOrGetConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	recipientID, _ := uuid.Parse(req.RecipientID)

	convType := messaging.ConversationType(req.Type)
	if req.Type == "" {
		convType = messaging.TypeDirect
	}

	conversationID, err := messaging.GetOrCreateConversation(c.Context(), store(), userID, recipientID, convType, req.ContextID)
	if err != nil {
		if errors.Is(err, messaging.ErrSelfConversation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot create a conversation with yourself"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve conversation"})
	}
	return c.JSON(fiber.Map{"conversation_id": conversationID})
}

type SendMessageRequest struct {
	ConversationID string  `json:"conversation_id" validate:"required"`
	RecipientID    string  `json:"recipient_id" validate:"required,uuid"`
	MessageType    string  `json:"message_type" validate:"omitempty,oneof=text file invitation application_update"`
	Content        string  `json:"content"`
	FileURL        *string `json:"file_url,omitempty"`
	FileName       *string `json:"file_name,omitempty"`
	FileSize       *int64  `json:"file_size,omitempty"`
}

func SendMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	recipientID, _ := uuid.Parse(req.RecipientID)

	message := models.Message{
		ConversationID: req.ConversationID,
		SenderID:       userID,
		RecipientID:    recipientID,
		MessageType:    req.MessageType,
		Content:        req.Content,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
	}
	if err := messaging.Send(c.Context(), store(), &message); err != nil {
		if errors.Is(err, messaging.ErrSelfMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Sender and recipient must differ"})
		}
		log.Printf("Failed to send message in %s: %v", req.ConversationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send message"})
	}

	websocket.PublishMessageChange(recipientID)
	return c.Status(fiber.StatusCreated).JSON(message)
}

func MarkConversationRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	conversationID := c.Params("conversationId")

	if err := messaging.MarkRead(c.Context(), store(), userID, conversationID); err != nil {
		log.Printf("Failed to mark %s read for %s: %v", conversationID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark conversation read"})
	}
	websocket.PublishOverrideChange(userID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func MarkConversationUnread(c *fiber.Ctx) error {
	userID := currentUserID(c)
	conversationID := c.Params("conversationId")

	if err := messaging.MarkUnread(c.Context(), store(), userID, conversationID); err != nil {
		log.Printf("Failed to mark %s unread for %s: %v", conversationID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark conversation unread"})
	}
	websocket.PublishOverrideChange(userID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func ArchiveConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)
	conversationID := c.Params("conversationId")

	if err := messaging.Archive(c.Context(), store(), userID, conversationID); err != nil {
		log.Printf("Failed to archive %s for %s: %v", conversationID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to archive conversation"})
	}
	websocket.PublishOverrideChange(userID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func UnarchiveConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)
	conversationID := c.Params("conversationId")

	if err := messaging.Unarchive(c.Context(), store(), userID, conversationID); err != nil {
		log.Printf("Failed to unarchive %s for %s: %v", conversationID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to unarchive conversation"})
	}
	websocket.PublishOverrideChange(userID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func DeleteConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)
	conversationID := c.Params("conversationId")

	if err := messaging.Delete(c.Context(), store(), userID, conversationID); err != nil {
		log.Printf("Failed to delete %s for %s: %v", conversationID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete conversation"})
	}
	websocket.PublishMessageChange(userID)
	return c.JSON(fiber.Map{"status": "ok"})
}

type wsInbound struct {
	Type           string  `json:"type"`
	Token          string  `json:"token,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	RecipientID    string  `json:"recipient_id,omitempty"`
	MessageType    string  `json:"message_type,omitempty"`
	Content        string  `json:"content,omitempty"`
	FileURL        *string `json:"file_url,omitempty"`
	FileName       *string `json:"file_name,omitempty"`
	FileSize       *int64  `json:"file_size,omitempty"`
}

// ServeWs authenticates the socket, binds it to a messaging session and
// relays client frames to the session. The session and hub registration are
// released when the socket closes.
func ServeWs(c *websocketcontrib.Conn) {
	var authMsg wsInbound
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid token: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		log.Printf("WebSocket auth failed: invalid user_id: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	var writeMu sync.Mutex
	session := messaging.NewSession(store(), userID, messaging.SessionConfig{}, func(snap messaging.Snapshot) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := c.WriteJSON(fiber.Map{"type": "snapshot", "data": snap}); err != nil {
			log.Printf("Failed to push snapshot to %s: %v", userID, err)
		}
	})

	client := &websocket.Client{UserID: userID, Conn: c, Session: session}
	websocket.Register <- client
	defer func() {
		websocket.Unregister <- client
		session.Close()
		c.Close()
	}()

	for {
		var msg wsInbound
		if err := c.ReadJSON(&msg); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			break
		}

		switch msg.Type {
		case "focus":
			// Window focus re-polls the unread count as a consistency check.
			session.PollUnread(context.Background())
		case "refresh":
			session.RequestRefresh()
		case "mark_read":
			if err := session.MarkAsRead(context.Background(), msg.ConversationID); err != nil {
				log.Printf("Failed to mark %s read for %s: %v", msg.ConversationID, userID, err)
			}
			websocket.PublishOverrideChange(userID)
		case "mark_unread":
			if err := session.MarkAsUnread(context.Background(), msg.ConversationID); err != nil {
				log.Printf("Failed to mark %s unread for %s: %v", msg.ConversationID, userID, err)
			}
			websocket.PublishOverrideChange(userID)
		case "send":
			recipientID, err := uuid.Parse(msg.RecipientID)
			if err != nil {
				_ = c.WriteJSON(fiber.Map{"error": "Invalid recipient ID"})
				continue
			}
			message := models.Message{
				ConversationID: msg.ConversationID,
				SenderID:       userID,
				RecipientID:    recipientID,
				MessageType:    msg.MessageType,
				Content:        msg.Content,
				FileURL:        msg.FileURL,
				FileName:       msg.FileName,
				FileSize:       msg.FileSize,
			}
			if err := session.SendMessage(context.Background(), &message); err != nil {
				log.Printf("Failed to send message for %s: %v", userID, err)
				_ = c.WriteJSON(fiber.Map{"error": "Failed to send message"})
				continue
			}
			websocket.PublishMessageChange(recipientID)
		default:
			_ = c.WriteJSON(fiber.Map{"error": fmt.Sprintf("Unknown frame type: %s", msg.Type)})
		}
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configs.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
