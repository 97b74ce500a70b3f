package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/courtstream/broadcast"
	"github.com/wfunc/courtstream/config"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/monitor"
	"github.com/wfunc/courtstream/persistence"
	courtstream_rpc "github.com/wfunc/courtstream/rpc"
	"github.com/wfunc/courtstream/services"
	"github.com/wfunc/courtstream/stream"
)

type GameServer struct {
	cfg       config.ServerConfig
	upgrader  websocket.Upgrader
	hub       *broadcast.Hub
	streams   *stream.Manager
	snapshots *services.SnapshotService
	store     persistence.Store
	rpcServer *courtstream_rpc.Server
	mon       *monitor.Monitor
	mux       *http.ServeMux

	// baseCtx parents every session loop started by a websocket connect.
	baseCtx    context.Context
	homeTeamID string
}

func NewGameServer(cfg *config.Config, store persistence.Store, hub *broadcast.Hub,
	streams *stream.Manager, snapshots *services.SnapshotService, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:        cfg.Server,
		hub:        hub,
		streams:    streams,
		snapshots:  snapshots,
		store:      store,
		mon:        mon,
		mux:        http.NewServeMux(),
		baseCtx:    context.Background(),
		homeTeamID: cfg.Simulation.HomeTeamID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	rpcServer, err := courtstream_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(courtstream_rpc.NewSnapshotService(snapshots))

	s.routes()
	return s
}

func (s *GameServer) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ws/game/{id}", s.handleWebSocket)
	s.mux.HandleFunc("POST /api/test/game-update/{id}", s.handleCreateTestData)
	s.mux.HandleFunc("POST /api/test/simulate-update/{id}", s.handleSimulateUpdate)
}

// Handler exposes the route table for tests.
func (s *GameServer) Handler() http.Handler {
	return s.mux
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	return http.ListenAndServe(s.cfg.HTTPAddress, s.mux)
}

func (s *GameServer) Shutdown() {
	s.streams.StopAll()
	s.rpcServer.Stop()
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, store := "healthy", "connected"
	if _, _, err := s.store.Get(ctx, "healthcheck"); err != nil {
		status, store = "degraded", "disconnected"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"store":     store,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleCreateTestData seeds the canonical fresh game for a session and
// broadcasts it.
func (s *GameServer) handleCreateTestData(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	snap := s.snapshots.SeedSnapshot(sessionID, s.homeTeamID, time.Now())
	if err := s.streams.Seed(r.Context(), sessionID, snap); err != nil {
		logger.Log.Errorf("Error creating test data for %s: %v", sessionID, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "store not available"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Test data created"})
}

// handleSimulateUpdate forces one tick-equivalent of work for a session.
func (s *GameServer) handleSimulateUpdate(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	_, ok, err := s.snapshots.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "store not available"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Game not found"})
		return
	}

	if err := s.streams.ForceTick(r.Context(), sessionID); err != nil {
		logger.Log.Errorf("Error simulating update for %s: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Game updated"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Failed to write response: %v", err)
	}
}
