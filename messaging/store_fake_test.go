package messaging

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/agencianocode/talent-digital-io/models"
	"github.com/google/uuid"
)

// memStore is an in-memory Store used by the package tests. Individual
// operations can be rigged to fail for error-path coverage.
type memStore struct {
	mu            sync.Mutex
	messages      []models.Message
	overrides     map[string]models.ConversationOverride
	notifications []models.Notification
	profiles      map[uuid.UUID]Profile

	failMarkRead       bool
	failNotifications  bool
	failArchiveAfter   int // fail UpdateArchivedBy once this many calls went through; <0 disables
	archiveUpdateCalls int

	onListUserMessages func()
}

var errStoreDown = errors.New("store unavailable")

func newMemStore() *memStore {
	return &memStore{
		overrides:        make(map[string]models.ConversationOverride),
		profiles:         make(map[uuid.UUID]Profile),
		failArchiveAfter: -1,
	}
}

func overrideKey(userID uuid.UUID, conversationID string) string {
	return userID.String() + "|" + conversationID
}

func (m *memStore) ListUserMessages(_ context.Context, userID uuid.UUID) ([]models.Message, error) {
	m.mu.Lock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.SenderID == userID || msg.RecipientID == userID {
			out = append(out, msg)
		}
	}
	hook := m.onListUserMessages
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memStore) ListConversationMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) FindConversationID(_ context.Context, a, b uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if (msg.SenderID == a && msg.RecipientID == b) || (msg.SenderID == b && msg.RecipientID == a) {
			return msg.ConversationID, nil
		}
	}
	return "", nil
}

func (m *memStore) ConversationExists(_ context.Context, conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) MarkConversationRead(_ context.Context, conversationID string, recipientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMarkRead {
		return errStoreDown
	}
	now := time.Now()
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.ConversationID == conversationID && msg.RecipientID == recipientID && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = &now
		}
	}
	return nil
}

func (m *memStore) UpdateArchivedBy(_ context.Context, messageID uuid.UUID, archivedBy []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failArchiveAfter >= 0 && m.archiveUpdateCalls >= m.failArchiveAfter {
		return errStoreDown
	}
	m.archiveUpdateCalls++
	for i := range m.messages {
		if m.messages[i].ID == messageID {
			m.messages[i].ArchivedBy = archivedBy
			return nil
		}
	}
	return nil
}

func (m *memStore) DeleteConversation(_ context.Context, conversationID string, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && (msg.SenderID == userID || msg.RecipientID == userID) {
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return nil
}

func (m *memStore) SetOverrideForceUnread(_ context.Context, userID uuid.UUID, conversationID string, forced bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := overrideKey(userID, conversationID)
	override := m.overrides[key]
	override.UserID = userID
	override.ConversationID = conversationID
	override.ForceUnread = forced
	m.overrides[key] = override
	return nil
}

func (m *memStore) SetOverrideArchived(_ context.Context, userID uuid.UUID, conversationID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := overrideKey(userID, conversationID)
	override := m.overrides[key]
	override.UserID = userID
	override.ConversationID = conversationID
	override.Archived = archived
	m.overrides[key] = override
	return nil
}

func (m *memStore) ListOverrides(_ context.Context, userID uuid.UUID) ([]models.ConversationOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConversationOverride
	for _, override := range m.overrides {
		if override.UserID == userID {
			out = append(out, override)
		}
	}
	return out, nil
}

func (m *memStore) UnreadConversationIDs(_ context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if msg.RecipientID == userID && !msg.IsRead && !containsID(msg.ArchivedBy, userID) {
			out = append(out, msg.ConversationID)
		}
	}
	return out, nil
}

func (m *memStore) GetProfiles(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]Profile)
	for _, id := range userIDs {
		if profile, ok := m.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

func (m *memStore) InsertNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNotifications {
		return errStoreDown
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *memStore) messageByID(id uuid.UUID) *models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			msg := m.messages[i]
			return &msg
		}
	}
	return nil
}
