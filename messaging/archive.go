package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Archive hides the conversation for the user by appending the user id to the
// archived_by set of every message, one update per row. A failure mid-batch
// leaves some messages flagged and some not; derivation tolerates the mixed
// state and the next successful retry or reload corrects it.
func Archive(ctx context.Context, s Store, userID uuid.UUID, conversationID string) error {
	messages, err := s.ListConversationMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	id := userID.String()
	for i := range messages {
		msg := &messages[i]
		if containsID(msg.ArchivedBy, userID) {
			continue
		}
		updated := append(append([]string{}, msg.ArchivedBy...), id)
		if err := s.UpdateArchivedBy(ctx, msg.ID, updated); err != nil {
			return fmt.Errorf("archive message %s: %w", msg.ID, err)
		}
	}
	return s.SetOverrideArchived(ctx, userID, conversationID, true)
}

// Unarchive removes the user from every message's archived_by set and clears
// the archived override.
func Unarchive(ctx context.Context, s Store, userID uuid.UUID, conversationID string) error {
	messages, err := s.ListConversationMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	id := userID.String()
	for i := range messages {
		msg := &messages[i]
		if !containsID(msg.ArchivedBy, userID) {
			continue
		}
		updated := make([]string, 0, len(msg.ArchivedBy))
		for _, member := range msg.ArchivedBy {
			if member != id {
				updated = append(updated, member)
			}
		}
		if err := s.UpdateArchivedBy(ctx, msg.ID, updated); err != nil {
			return fmt.Errorf("unarchive message %s: %w", msg.ID, err)
		}
	}
	return s.SetOverrideArchived(ctx, userID, conversationID, false)
}

// Delete removes every message of the conversation touching the user.
func Delete(ctx context.Context, s Store, userID uuid.UUID, conversationID string) error {
	return s.DeleteConversation(ctx, conversationID, userID)
}
