package messaging

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agencianocode/talent-digital-io/models"
	"github.com/google/uuid"
)

const (
	defaultRefreshDebounce = 250 * time.Millisecond
	defaultPollInterval    = 30 * time.Second
)

// Snapshot is the state pushed to a connected client after every change.
type Snapshot struct {
	Conversations []Conversation `json:"conversations"`
	UnreadCount   int            `json:"unread_count"`
}

type SessionConfig struct {
	// RefreshDebounce coalesces a burst of refresh signals into one reload.
	RefreshDebounce time.Duration
	// PollInterval is the liveness fallback that re-polls the unread count
	// independently of the push channel.
	PollInterval time.Duration
}

// Session holds the in-memory conversation state for one connected user.
// Mutating actions update the local state synchronously before their store
// write resolves; write failures are surfaced but never rolled back locally.
// The next reload, triggered by a realtime event, a focus signal or the poll
// interval, is the only reconciliation point.
type Session struct {
	userID   uuid.UUID
	store    Store
	onUpdate func(Snapshot)

	debounce  time.Duration
	pollEvery time.Duration

	refresh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// seq orders reloads so a stale, slower fetch cannot clobber a fresher
	// one already applied.
	seq atomic.Uint64

	mu            sync.Mutex
	applied       uint64
	conversations []Conversation
	unread        int
}

// NewSession builds the session and starts its refresh loop. Callers must
// Close the session when the client disconnects.
func NewSession(store Store, userID uuid.UUID, cfg SessionConfig, onUpdate func(Snapshot)) *Session {
	if cfg.RefreshDebounce <= 0 {
		cfg.RefreshDebounce = defaultRefreshDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	s := &Session{
		userID:    userID,
		store:     store,
		onUpdate:  onUpdate,
		debounce:  cfg.RefreshDebounce,
		pollEvery: cfg.PollInterval,
		refresh:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go s.run()
	s.RequestRefresh()
	return s
}

func (s *Session) UserID() uuid.UUID { return s.userID }

// RequestRefresh signals the refresh bus. Realtime events, focus signals and
// explicit client requests all funnel through here; the loop debounces them
// into a single reload.
func (s *Session) RequestRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Close releases the refresh loop and poll ticker. Safe to call twice.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) run() {
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-s.refresh:
			if !s.coalesce() {
				return
			}
			s.Reload(context.Background())
		case <-ticker.C:
			s.PollUnread(context.Background())
		}
	}
}

// coalesce absorbs further refresh signals for the debounce window so a burst
// of realtime events produces one reload.
func (s *Session) coalesce() bool {
	timer := time.NewTimer(s.debounce)
	defer timer.Stop()
	for {
		select {
		case <-s.done:
			return false
		case <-s.refresh:
		case <-timer.C:
			return true
		}
	}
}

// Reload recomputes conversations and unread count from the store, replacing
// the in-memory state wholesale. Read failures degrade to an empty list
// rather than failing the session. Results of a reload older than the latest
// applied one are discarded.
func (s *Session) Reload(ctx context.Context) {
	seq := s.seq.Add(1)

	conversations, err := LoadConversations(ctx, s.store, s.userID)
	if err != nil {
		log.Printf("Failed to load conversations for %s: %v", s.userID, err)
		conversations = []Conversation{}
	}
	unread, err := UnreadCount(ctx, s.store, s.userID)
	if err != nil {
		log.Printf("Failed to load unread count for %s: %v", s.userID, err)
		unread = 0
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return
	}
	s.applied = seq
	s.conversations = conversations
	s.unread = unread
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)
}

// PollUnread re-polls only the unread count, the cheap liveness check used by
// the interval ticker and window-focus signals.
func (s *Session) PollUnread(ctx context.Context) {
	unread, err := UnreadCount(ctx, s.store, s.userID)
	if err != nil {
		log.Printf("Failed to poll unread count for %s: %v", s.userID, err)
		return
	}
	s.mu.Lock()
	changed := unread != s.unread
	s.unread = unread
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if changed {
		s.push(snap)
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	conversations := make([]Conversation, len(s.conversations))
	copy(conversations, s.conversations)
	return Snapshot{Conversations: conversations, UnreadCount: s.unread}
}

func (s *Session) push(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}

// MarkAsRead zeroes the conversation's unread count locally, then writes.
func (s *Session) MarkAsRead(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if conv := s.findLocked(conversationID); conv != nil && conv.UnreadCount > 0 {
		s.unread -= conv.UnreadCount
		if s.unread < 0 {
			s.unread = 0
		}
		conv.UnreadCount = 0
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)

	return MarkRead(ctx, s.store, s.userID, conversationID)
}

// MarkAsUnread lifts the conversation to unread locally, then writes the
// force_unread override.
func (s *Session) MarkAsUnread(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if conv := s.findLocked(conversationID); conv != nil && conv.UnreadCount == 0 {
		conv.UnreadCount = 1
		s.unread++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)

	return MarkUnread(ctx, s.store, s.userID, conversationID)
}

func (s *Session) ArchiveConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if conv := s.findLocked(conversationID); conv != nil && !conv.Archived {
		conv.Archived = true
		s.unread -= conv.UnreadCount
		if s.unread < 0 {
			s.unread = 0
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)

	return Archive(ctx, s.store, s.userID, conversationID)
}

func (s *Session) UnarchiveConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if conv := s.findLocked(conversationID); conv != nil && conv.Archived {
		conv.Archived = false
		s.unread += conv.UnreadCount
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)

	return Unarchive(ctx, s.store, s.userID, conversationID)
}

// SendMessage applies the outgoing message to the local conversation list,
// then persists it. The conversation bucket is created on the fly when this
// is its first message; the next reload fills in resolved participant names.
func (s *Session) SendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt

	s.mu.Lock()
	if conv := s.findLocked(msg.ConversationID); conv != nil {
		conv.LastMessage = msg
		conv.LastMessageAt = msg.CreatedAt
		conv.UpdatedAt = msg.CreatedAt
	} else {
		s.conversations = append([]Conversation{{
			ID:   msg.ConversationID,
			Type: ClassifyConversationType(msg.ConversationID),
			Participants: [2]Participant{
				{UserID: msg.SenderID, DisplayName: unknownParticipantName},
				{UserID: msg.RecipientID, DisplayName: unknownParticipantName},
			},
			LastMessage:   msg,
			LastMessageAt: msg.CreatedAt,
			UpdatedAt:     msg.CreatedAt,
		}}, s.conversations...)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)

	return Send(ctx, s.store, msg)
}

// DeleteConversation drops the conversation locally, then deletes its rows.
func (s *Session) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID != conversationID {
			continue
		}
		if !s.conversations[i].Archived {
			s.unread -= s.conversations[i].UnreadCount
			if s.unread < 0 {
				s.unread = 0
			}
		}
		s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
		break
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.push(snap)

	return Delete(ctx, s.store, s.userID, conversationID)
}

func (s *Session) findLocked(conversationID string) *Conversation {
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			return &s.conversations[i]
		}
	}
	return nil
}
