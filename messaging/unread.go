package messaging

import (
	"context"

	"github.com/google/uuid"
)

// UnreadCount computes the authoritative unread total without loading
// conversation content. Real unread messages count first; force_unread
// overrides only add for conversations that contributed no real unread
// message, so a conversation never counts twice.
func UnreadCount(ctx context.Context, s Store, userID uuid.UUID) (int, error) {
	ids, err := s.UnreadConversationIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := len(ids)
	counted := make(map[string]bool, len(ids))
	for _, id := range ids {
		counted[id] = true
	}

	overrides, err := s.ListOverrides(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, override := range overrides {
		if override.ForceUnread && !counted[override.ConversationID] {
			count++
		}
	}
	return count, nil
}
