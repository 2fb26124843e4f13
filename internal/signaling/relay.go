// Package signaling relays real-time session events between the two parties
// of a session. Rooms are keyed by session id and payloads are passed through
// untouched; media never goes through the server.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	EventJoinRoom    = "join-room"
	EventSignal      = "signal"
	EventSendMessage = "send-message"
	EventShareScreen = "share-screen"
)

var ErrUnknownEvent = errors.New("unknown event type")

func ValidEventType(t string) bool {
	switch t {
	case EventJoinRoom, EventSignal, EventSendMessage, EventShareScreen:
		return true
	}
	return false
}

type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sentAt"`
}

// Relay fans events out to every current subscriber of a room. Subscribers
// that joined after an event was published do not see it.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of room events. It is closed once ctx is
	// done or the returned cancel func is called.
	Subscribe(ctx context.Context, room string) (<-chan Event, func(), error)
	Close() error
}
