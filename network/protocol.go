// network/protocol.go
package network

import (
	"time"

	"github.com/wfunc/courtstream/models"
)

// Server -> client message types.
const (
	MsgTypeConnectionStatus = "connection_status"
	MsgTypeInitialState     = "initial_state"
	MsgTypeInfo             = "info"
	MsgTypeGameStateUpdate  = "game_state_update"
	MsgTypeError            = "error"
)

// Client -> server message types.
const (
	MsgTypeRequestUpdate = "request_update"
)

// ClientMessage is the inbound envelope. Anything that fails to decode
// into this shape is answered with an error message, not a close.
type ClientMessage struct {
	Type string `json:"type"`
}

// ConnectionStatus is sent exactly once, immediately after the upgrade.
type ConnectionStatus struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	GameID    string    `json:"game_id"`
	Timestamp time.Time `json:"timestamp"`
}

// InitialState carries the stored snapshot to a fresh subscriber.
type InitialState struct {
	Type string                 `json:"type"`
	Data models.SessionSnapshot `json:"data"`
}

// Info is the no-state-found reply and other non-error notices.
type Info struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GameStateUpdate answers an explicit request_update. Data is the stored
// snapshot, or an empty object when none exists.
type GameStateUpdate struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ErrorMessage reports a malformed inbound message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
