package messaging

import (
	"context"

	"github.com/google/uuid"
)

// MarkRead flags every unread incoming message of the conversation as read
// and clears any force_unread override. Calling it again is a no-op, the
// terminal state is identical.
func MarkRead(ctx context.Context, s Store, userID uuid.UUID, conversationID string) error {
	if err := s.MarkConversationRead(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.SetOverrideForceUnread(ctx, userID, conversationID, false)
}

// MarkUnread forces the conversation unread through an override row. No
// message row is mutated: there may be no unread-eligible incoming message to
// carry the state, which is exactly what the override exists for.
func MarkUnread(ctx context.Context, s Store, userID uuid.UUID, conversationID string) error {
	return s.SetOverrideForceUnread(ctx, userID, conversationID, true)
}
