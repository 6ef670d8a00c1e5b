package jobs

import (
	"context"
	"log"

	"github.com/agencianocode/talent-digital-io/messaging"
	"github.com/agencianocode/talent-digital-io/websocket"
)

// SweepUnreadCounts re-polls the unread count for every connected session.
// Each session already runs its own 30-second poll; this sweep is the
// server-wide liveness fallback for sessions whose push channel went quiet.
func SweepUnreadCounts() {
	log.Println("Running job: SweepUnreadCounts...")

	websocket.ForEachSession(func(session *messaging.Session) {
		session.PollUnread(context.Background())
	})
}
