package websocket

import (
	"log"
	"sync"

	"github.com/agencianocode/talent-digital-io/messaging"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type Client struct {
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Session *messaging.Session
}

const (
	EventMessageChange  = "message_change"
	EventOverrideChange = "override_change"
)

// Event is a change notice on the message or override store, addressed to
// the user whose realtime stream it belongs to (recipient for messages,
// owner for overrides).
type Event struct {
	Kind   string
	UserID uuid.UUID
}

var clients = make(map[uuid.UUID]*Client)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Events = make(chan Event, 64)

func PublishMessageChange(userID uuid.UUID) {
	publish(Event{Kind: EventMessageChange, UserID: userID})
}

func PublishOverrideChange(userID uuid.UUID) {
	publish(Event{Kind: EventOverrideChange, UserID: userID})
}

// publish never blocks a handler; the interval poll covers any dropped
// event.
func publish(event Event) {
	select {
	case Events <- event:
	default:
		log.Printf("Event channel full, dropping %s for %s", event.Kind, event.UserID)
	}
}

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if current, ok := clients[client.UserID]; ok && current.Conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case event := <-Events:
			clientsMu.RLock()
			client, ok := clients[event.UserID]
			clientsMu.RUnlock()
			if ok && client.Session != nil {
				client.Session.RequestRefresh()
			}
		}
	}
}

// ForEachSession visits every connected session, used by the periodic unread
// sweep.
func ForEachSession(fn func(*messaging.Session)) {
	clientsMu.RLock()
	sessions := make([]*messaging.Session, 0, len(clients))
	for _, client := range clients {
		if client.Session != nil {
			sessions = append(sessions, client.Session)
		}
	}
	clientsMu.RUnlock()

	for _, session := range sessions {
		fn(session)
	}
}
