package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(store Store, userID uuid.UUID) *Session {
	return NewSession(store, userID, SessionConfig{
		RefreshDebounce: 10 * time.Millisecond,
		PollInterval:    time.Hour,
	}, nil)
}

func waitForUnread(t *testing.T, s *Session, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Snapshot().UnreadCount == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionMarkAsReadIsOptimistic(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	seedMessage(store, newTestMessage("conv_1", bob, alice, "a", at(0)))
	seedMessage(store, newTestMessage("conv_1", bob, alice, "b", at(1)))

	session := newTestSession(store, alice)
	defer session.Close()
	waitForUnread(t, session, 2)

	// The write fails, the optimistic local state stays.
	store.failMarkRead = true
	err := session.MarkAsRead(ctx, "conv_1")
	require.Error(t, err)

	snap := session.Snapshot()
	assert.Equal(t, 0, snap.UnreadCount)
	conv := conversationByID(snap.Conversations, "conv_1")
	require.NotNil(t, conv)
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestSessionMarkAsUnread(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	read := newTestMessage("conv_1", bob, alice, "seen", at(0))
	read.IsRead = true
	seedMessage(store, read)

	session := newTestSession(store, alice)
	defer session.Close()
	require.Eventually(t, func() bool {
		return len(session.Snapshot().Conversations) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, session.MarkAsUnread(ctx, "conv_1"))

	snap := session.Snapshot()
	assert.Equal(t, 1, snap.UnreadCount)
	conv := conversationByID(snap.Conversations, "conv_1")
	require.NotNil(t, conv)
	assert.Equal(t, 1, conv.UnreadCount)

	overrides, err := store.ListOverrides(ctx, alice)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.True(t, overrides[0].ForceUnread)
}

func TestSessionArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	seedMessage(store, newTestMessage("conv_1", bob, alice, "a", at(0)))

	session := newTestSession(store, alice)
	defer session.Close()
	waitForUnread(t, session, 1)

	require.NoError(t, session.ArchiveConversation(ctx, "conv_1"))
	snap := session.Snapshot()
	conv := conversationByID(snap.Conversations, "conv_1")
	require.NotNil(t, conv)
	assert.True(t, conv.Archived)
	assert.Equal(t, 0, snap.UnreadCount)

	require.NoError(t, session.UnarchiveConversation(ctx, "conv_1"))
	snap = session.Snapshot()
	conv = conversationByID(snap.Conversations, "conv_1")
	require.NotNil(t, conv)
	assert.False(t, conv.Archived)
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestSessionSendMessageCreatesBucket(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	var loads int32
	store.onListUserMessages = func() { atomic.AddInt32(&loads, 1) }

	session := newTestSession(store, alice)
	defer session.Close()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loads) == 1
	}, 2*time.Second, 5*time.Millisecond)

	msg := newTestMessage("conv_new", alice, bob, "first contact", time.Time{})
	require.NoError(t, session.SendMessage(ctx, &msg))

	snap := session.Snapshot()
	conv := conversationByID(snap.Conversations, "conv_new")
	require.NotNil(t, conv)
	assert.Equal(t, "first contact", conv.LastMessage.Content)
	assert.Equal(t, 0, conv.UnreadCount)

	messages, err := store.ListConversationMessages(ctx, "conv_new")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestSessionDeleteConversation(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	seedMessage(store, newTestMessage("conv_1", bob, alice, "a", at(0)))

	session := newTestSession(store, alice)
	defer session.Close()
	waitForUnread(t, session, 1)

	require.NoError(t, session.DeleteConversation(ctx, "conv_1"))
	snap := session.Snapshot()
	assert.Nil(t, conversationByID(snap.Conversations, "conv_1"))
	assert.Equal(t, 0, snap.UnreadCount)
}

func TestSessionPollUnread(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	var loads int32
	store.onListUserMessages = func() { atomic.AddInt32(&loads, 1) }

	session := newTestSession(store, alice)
	defer session.Close()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loads) == 1
	}, 2*time.Second, 5*time.Millisecond)

	seedMessage(store, newTestMessage("conv_1", bob, alice, "new", at(0)))

	// Window focus re-polls the count without a push event.
	session.PollUnread(ctx)
	assert.Equal(t, 1, session.Snapshot().UnreadCount)
}

func TestSessionDebouncesRefreshBursts(t *testing.T) {
	alice := uuid.New()

	store := newMemStore()
	var loads int32
	store.onListUserMessages = func() { atomic.AddInt32(&loads, 1) }

	session := newTestSession(store, alice)
	defer session.Close()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loads) == 1
	}, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		session.RequestRefresh()
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loads) == 2
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads), "a burst of signals must coalesce into one reload")
}

func TestSessionDiscardsStaleReload(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemStore()
	seedMessage(store, newTestMessage("conv_old", bob, alice, "old", at(0)))

	var calls int32
	gate := make(chan struct{})
	store.onListUserMessages = func() {
		if atomic.AddInt32(&calls, 1) == 2 {
			<-gate
		}
	}

	session := newTestSession(store, alice)
	defer session.Close()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// A slow reload captures the current data and stalls in flight.
	slowDone := make(chan struct{})
	go func() {
		session.Reload(ctx)
		close(slowDone)
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// A fresher reload lands while the slow one is stalled.
	seedMessage(store, newTestMessage("conv_new", bob, alice, "new", at(1)))
	session.Reload(ctx)
	require.Len(t, session.Snapshot().Conversations, 2)

	close(gate)
	<-slowDone

	// The stale result must not clobber the fresher one.
	assert.Len(t, session.Snapshot().Conversations, 2)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	store := newMemStore()
	session := newTestSession(store, uuid.New())
	session.Close()
	session.Close()
}
