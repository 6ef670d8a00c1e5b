package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConversationType string

const (
	TypeDirect         ConversationType = "direct"
	TypeApplication    ConversationType = "application"
	TypeProfileContact ConversationType = "profile_contact"
	TypeServiceInquiry ConversationType = "service_inquiry"
)

var ErrSelfConversation = errors.New("cannot start a conversation with yourself")

// ClassifyConversationType infers the conversation type from the id string.
// The literal substrings _app_, _profile_ and _service_ are the only signal;
// existing ids in production encode their type this way, so the matching must
// stay exactly as-is for backward compatibility.
func ClassifyConversationType(conversationID string) ConversationType {
	switch {
	case strings.Contains(conversationID, "_app_"):
		return TypeApplication
	case strings.Contains(conversationID, "_profile_"):
		return TypeProfileContact
	case strings.Contains(conversationID, "_service_"):
		return TypeServiceInquiry
	default:
		return TypeDirect
	}
}

func typeTag(t ConversationType) string {
	switch t {
	case TypeApplication:
		return "app"
	case TypeProfileContact:
		return "profile"
	case TypeServiceInquiry:
		return "service"
	default:
		return ""
	}
}

// BuildConversationID mints the deterministic id for a new conversation:
// conv_<self>_<other>[_app_|_profile_|_service_]<contextIdOrTimestamp>.
func BuildConversationID(selfID, otherID uuid.UUID, convType ConversationType, contextID string) string {
	suffix := contextID
	if suffix == "" {
		suffix = fmt.Sprintf("%d", time.Now().UnixMilli())
	}
	if tag := typeTag(convType); tag != "" {
		return fmt.Sprintf("conv_%s_%s_%s_%s", selfID, otherID, tag, suffix)
	}
	return fmt.Sprintf("conv_%s_%s_%s", selfID, otherID, suffix)
}

// GetOrCreateConversation resolves the conversation id to use between two
// users. Searching existing messages always precedes minting a new id, so a
// participant pair never forks into duplicate threads. Application and
// service inquiry threads carry a context id and are matched per context;
// every other type collapses to one thread per pair. No row is written here;
// the conversation becomes real once the first message is sent with the id.
func GetOrCreateConversation(ctx context.Context, s Store, selfID, otherID uuid.UUID, convType ConversationType, contextID string) (string, error) {
	if selfID == otherID {
		return "", ErrSelfConversation
	}

	contextual := contextID != "" && (convType == TypeApplication || convType == TypeServiceInquiry)
	if contextual {
		// Per-context threads: the same pair legitimately holds one thread
		// per application or service inquiry. Probe both id orderings.
		for _, candidate := range []string{
			BuildConversationID(selfID, otherID, convType, contextID),
			BuildConversationID(otherID, selfID, convType, contextID),
		} {
			exists, err := s.ConversationExists(ctx, candidate)
			if err != nil {
				return "", err
			}
			if exists {
				return candidate, nil
			}
		}
		return BuildConversationID(selfID, otherID, convType, contextID), nil
	}

	existing, err := s.FindConversationID(ctx, selfID, otherID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}
	return BuildConversationID(selfID, otherID, convType, contextID), nil
}
