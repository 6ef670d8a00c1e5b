package messaging

import (
	"context"

	"github.com/agencianocode/talent-digital-io/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Profile is the display identity resolved for a conversation participant.
// For users who own an organization, the organization name and logo win over
// the personal profile.
type Profile struct {
	DisplayName string
	AvatarURL   string
	Role        string
	Email       string
}

// Store is the persistence boundary of the messaging core. GormStore is the
// production implementation; tests use an in-memory fake.
type Store interface {
	// ListUserMessages returns every message where the user is sender or
	// recipient, newest first.
	ListUserMessages(ctx context.Context, userID uuid.UUID) ([]models.Message, error)
	ListConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	// FindConversationID returns the conversation id of any existing message
	// between the two users, in either direction, or "" when none exists.
	FindConversationID(ctx context.Context, a, b uuid.UUID) (string, error)
	ConversationExists(ctx context.Context, conversationID string) (bool, error)

	InsertMessage(ctx context.Context, msg *models.Message) error
	// MarkConversationRead flags every unread incoming message of the
	// conversation as read for the given recipient.
	MarkConversationRead(ctx context.Context, conversationID string, recipientID uuid.UUID) error
	UpdateArchivedBy(ctx context.Context, messageID uuid.UUID, archivedBy []string) error
	// DeleteConversation removes every message of the conversation touching
	// the user. Unrecoverable.
	DeleteConversation(ctx context.Context, conversationID string, userID uuid.UUID) error

	SetOverrideForceUnread(ctx context.Context, userID uuid.UUID, conversationID string, forced bool) error
	SetOverrideArchived(ctx context.Context, userID uuid.UUID, conversationID string, archived bool) error
	ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.ConversationOverride, error)

	// UnreadConversationIDs returns one conversation id per unread incoming
	// message that the user has not archived. Duplicates are expected and
	// carry the per-message count.
	UnreadConversationIDs(ctx context.Context, userID uuid.UUID) ([]string, error)

	GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]Profile, error)
	InsertNotification(ctx context.Context, n *models.Notification) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListUserMessages(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at desc").
		Find(&messages).Error
	return messages, err
}

func (s *GormStore) ListConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Find(&messages).Error
	return messages, err
}

func (s *GormStore) FindConversationID(ctx context.Context, a, b uuid.UUID) (string, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return message.ConversationID, nil
}

func (s *GormStore) ConversationExists(ctx context.Context, conversationID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) MarkConversationRead(ctx context.Context, conversationID string, recipientID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = false", conversationID, recipientID).
		Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("now()")}).Error
}

func (s *GormStore) UpdateArchivedBy(ctx context.Context, messageID uuid.UUID, archivedBy []string) error {
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("archived_by", pq.StringArray(archivedBy)).Error
}

func (s *GormStore) DeleteConversation(ctx context.Context, conversationID string, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("conversation_id = ? AND (sender_id = ? OR recipient_id = ?)", conversationID, userID, userID).
		Delete(&models.Message{}).Error
}

func (s *GormStore) SetOverrideForceUnread(ctx context.Context, userID uuid.UUID, conversationID string, forced bool) error {
	return s.upsertOverride(ctx, userID, conversationID, "force_unread", forced)
}

func (s *GormStore) SetOverrideArchived(ctx context.Context, userID uuid.UUID, conversationID string, archived bool) error {
	return s.upsertOverride(ctx, userID, conversationID, "archived", archived)
}

// upsertOverride writes a single flag of the (user, conversation) override
// row without clobbering the other one.
func (s *GormStore) upsertOverride(ctx context.Context, userID uuid.UUID, conversationID string, column string, value bool) error {
	override := models.ConversationOverride{
		UserID:         userID,
		ConversationID: conversationID,
	}
	switch column {
	case "force_unread":
		override.ForceUnread = value
	case "archived":
		override.Archived = value
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "conversation_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{column: value, "updated_at": gorm.Expr("now()")}),
	}).Create(&override).Error
}

func (s *GormStore) ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.ConversationOverride, error) {
	var overrides []models.ConversationOverride
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&overrides).Error
	return overrides, err
}

func (s *GormStore) UnreadConversationIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		// archived_by is NULL until someone archives; NULL = ANY(...) would
		// drop those rows from the count.
		Where("recipient_id = ? AND is_read = false AND (archived_by IS NULL OR NOT (? = ANY(archived_by)))", userID, userID.String()).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (s *GormStore) GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]Profile, error) {
	profiles := make(map[uuid.UUID]Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, user := range users {
		p := Profile{DisplayName: user.FullName, Role: user.Role, Email: user.Email}
		if user.AvatarURL != nil {
			p.AvatarURL = *user.AvatarURL
		}
		profiles[user.ID] = p
	}

	var organizations []models.Organization
	if err := s.db.WithContext(ctx).Where("owner_id IN ?", userIDs).Find(&organizations).Error; err != nil {
		return nil, err
	}
	for _, org := range organizations {
		p := profiles[org.OwnerID]
		p.DisplayName = org.Name
		if org.LogoURL != nil {
			p.AvatarURL = *org.LogoURL
		}
		profiles[org.OwnerID] = p
	}

	return profiles, nil
}

func (s *GormStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}
