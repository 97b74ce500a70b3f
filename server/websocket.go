package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/network"
)

// wsSubscriber adapts a websocket connection to the broadcast hub.
type wsSubscriber struct {
	conn network.Connection
}

func (s *wsSubscriber) Deliver(data []byte) error {
	return s.conn.SendRaw(data)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	logger.Log.Infof("New subscriber from %s for session %s", wsConn.RemoteAddr(), sessionID)

	// Confirm the connection before anything else.
	if err := wsConn.SendJSON(network.ConnectionStatus{
		Type:      network.MsgTypeConnectionStatus,
		Status:    "connected",
		GameID:    sessionID,
		Timestamp: time.Now(),
	}); err != nil {
		wsConn.Close()
		return
	}

	handleID := s.hub.Subscribe(sessionID, &wsSubscriber{conn: wsConn})
	if s.mon != nil {
		s.mon.IncSubscribers()
	}

	defer func() {
		logger.Log.Infof("Subscriber %s left session %s", handleID, sessionID)
		s.hub.Unsubscribe(sessionID, handleID)
		if s.mon != nil {
			s.mon.DecSubscribers()
		}
		wsConn.Close()
	}()

	// One-time initial state push; the hub never replays history.
	s.sendInitialState(wsConn, sessionID)

	// A subscriber implies interest in live updates, so make sure the
	// session's loop is running.
	s.streams.StartSession(s.baseCtx, sessionID)

	for {
		data, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		s.handleClientMessage(wsConn, sessionID, data)
	}
}

func (s *GameServer) sendInitialState(conn network.Connection, sessionID string) {
	snap, ok, err := s.snapshots.GetSnapshot(s.baseCtx, sessionID)
	if err != nil {
		logger.Log.Errorf("Store error during subscribe for %s: %v", sessionID, err)
		conn.SendJSON(network.ErrorMessage{Type: network.MsgTypeError, Message: "Database connection error"})
		return
	}

	if ok {
		conn.SendJSON(network.InitialState{Type: network.MsgTypeInitialState, Data: snap})
		return
	}
	conn.SendJSON(network.Info{Type: network.MsgTypeInfo, Message: "No existing game state found"})
}

func (s *GameServer) handleClientMessage(conn network.Connection, sessionID string, data []byte) {
	var msg network.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		conn.SendJSON(network.ErrorMessage{
			Type:    network.MsgTypeError,
			Message: "Error processing message: " + err.Error(),
		})
		return
	}

	switch msg.Type {
	case network.MsgTypeRequestUpdate:
		snap, ok, err := s.snapshots.GetSnapshot(s.baseCtx, sessionID)
		var payload interface{} = struct{}{}
		if err == nil && ok {
			payload = snap
		}
		conn.SendJSON(network.GameStateUpdate{Type: network.MsgTypeGameStateUpdate, Data: payload})
	default:
		logger.Log.Debugf("Ignoring message type %q from session %s", msg.Type, sessionID)
	}
}
