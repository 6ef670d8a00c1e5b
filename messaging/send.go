package messaging

import (
	"context"
	"fmt"
	"log"

	"github.com/agencianocode/talent-digital-io/models"
	"github.com/agencianocode/talent-digital-io/notifications"
	"github.com/google/uuid"
)

var ErrSelfMessage = fmt.Errorf("sender and recipient must differ")

// Send persists a new message and then creates a best-effort notification for
// the recipient. Notification failures are logged and swallowed; they never
// affect delivery of the message itself.
func Send(ctx context.Context, s Store, msg *models.Message) error {
	if msg.SenderID == msg.RecipientID {
		return ErrSelfMessage
	}
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := s.InsertMessage(ctx, msg); err != nil {
		return err
	}

	notifyRecipient(ctx, s, msg)
	return nil
}

func notifyRecipient(ctx context.Context, s Store, msg *models.Message) {
	profiles, err := s.GetProfiles(ctx, []uuid.UUID{msg.SenderID, msg.RecipientID})
	if err != nil {
		log.Printf("Failed to resolve profiles for message notification: %v", err)
		return
	}
	sender := profiles[msg.SenderID]
	recipient := profiles[msg.RecipientID]

	senderName := sender.DisplayName
	if senderName == "" {
		senderName = unknownParticipantName
	}

	notification := models.Notification{
		UserID:    msg.RecipientID,
		Type:      "message",
		Title:     fmt.Sprintf("New message from %s", senderName),
		Message:   preview(msg),
		ActionURL: messagesPath(recipient.Role, msg.ConversationID),
		Read:      false,
	}
	if err := s.InsertNotification(ctx, &notification); err != nil {
		log.Printf("Failed to create message notification for %s: %v", msg.RecipientID, err)
	}

	if recipient.Email != "" {
		go notifications.SendEmail(recipient.DisplayName, recipient.Email,
			notification.Title,
			fmt.Sprintf("<h1>%s</h1><p>%s</p>", notification.Title, notification.Message))
	}
}

// messagesPath builds the role-specific dashboard path the notification
// links to, carrying the conversation id.
func messagesPath(role, conversationID string) string {
	base := "/talent-dashboard/messages"
	switch role {
	case "business":
		base = "/business-dashboard/messages"
	case "academy":
		base = "/academy-dashboard/messages"
	case "admin":
		base = "/admin-dashboard/messages"
	}
	return fmt.Sprintf("%s?conversation=%s", base, conversationID)
}

func preview(msg *models.Message) string {
	if msg.MessageType == models.MessageTypeFile && msg.FileName != nil {
		return fmt.Sprintf("Sent a file: %s", *msg.FileName)
	}
	content := msg.Content
	if len(content) > 120 {
		content = content[:117] + "..."
	}
	return content
}
