package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/courtstream/aggregator"
	"github.com/wfunc/courtstream/broadcast"
	"github.com/wfunc/courtstream/config"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/models"
	"github.com/wfunc/courtstream/network"
	"github.com/wfunc/courtstream/persistence"
	"github.com/wfunc/courtstream/services"
	"github.com/wfunc/courtstream/simulation"
	"github.com/wfunc/courtstream/stream"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// stubClock pins Now and never fires After, keeping background loops
// parked between ticks during tests.
type stubClock struct{}

func (stubClock) Now() time.Time { return time.Unix(100, 0) }

func (stubClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

// deadFetcher fails every source, so ticks run on simulation alone.
type deadFetcher struct{}

func (deadFetcher) FetchAll(_ context.Context, _ string, sources map[string]string) map[string]aggregator.Result {
	out := make(map[string]aggregator.Result, len(sources))
	for name := range sources {
		out[name] = aggregator.Result{Source: name, Err: &aggregator.FetchError{Source: name, Cause: errors.New("unavailable")}}
	}
	return out
}

type testHarness struct {
	server  *GameServer
	store   persistence.Store
	streams *stream.Manager
	http    *httptest.Server
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			HTTPAddress: "127.0.0.1:0",
			RPCAddress:  "127.0.0.1:0",
		},
		Feeds: config.FeedsConfig{
			Sources: map[string]string{"play_by_play": "/pbp"},
		},
		Stream:     config.StreamConfig{TickInterval: time.Second, BackoffInterval: 5 * time.Second},
		Simulation: config.SimulationConfig{ShotChance: 0, HomeTeamID: "home"},
	}

	store := persistence.NewMemoryStore()
	hub := broadcast.NewHub()
	engines := func(sessionID string) *simulation.Engine {
		return simulation.NewEngine(simulation.Config{ShotChance: 0, HomeTeamID: "home"}, rand.New(rand.NewSource(1)))
	}
	streams := stream.NewManager(deadFetcher{}, cfg.Feeds.Sources, store, hub, stubClock{}, cfg.Stream, nil, engines)
	snapshots := services.NewSnapshotService(store)

	srv := NewGameServer(cfg, store, hub, streams, snapshots, nil)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown()
	})

	return &testHarness{server: srv, store: store, streams: streams, http: ts}
}

func (h *testHarness) wsDial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws/game/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readEnvelope reads one frame and returns its type plus the raw bytes.
func readEnvelope(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Undecodable frame %s: %v", data, err)
	}
	return env.Type, data
}

// readUntil skips frames until one of the wanted type arrives. Live
// pushes from the background loop can interleave with replies.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) []byte {
	t.Helper()
	for i := 0; i < 20; i++ {
		msgType, data := readEnvelope(t, conn)
		if msgType == wantType {
			return data
		}
	}
	t.Fatalf("Never received a %s frame", wantType)
	return nil
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %q", body["status"])
	}
	if body["store"] != "connected" {
		t.Errorf("Expected connected store, got %q", body["store"])
	}
}

func TestCreateTestData(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Post(h.http.URL+"/api/test/game-update/g1", "application/json", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	snap, ok, err := h.store.Get(context.Background(), "g1")
	if err != nil || !ok {
		t.Fatalf("Seeded snapshot missing, ok=%v err=%v", ok, err)
	}
	if snap.GameState.ShotClock != 24.0 || snap.GameState.Quarter != 1 {
		t.Errorf("Unexpected seed: %+v", snap.GameState)
	}
	if len(snap.PlayerPositions) != 3 {
		t.Errorf("Expected 3 seeded players, got %d", len(snap.PlayerPositions))
	}
}

func TestSimulateUpdate_NotFound(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Post(h.http.URL+"/api/test/simulate-update/missing", "application/json", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["detail"] != "Game not found" {
		t.Errorf("Expected 'Game not found', got %q", body["detail"])
	}
}

func TestSimulateUpdate_AdvancesGame(t *testing.T) {
	h := newHarness(t)

	if resp, err := http.Post(h.http.URL+"/api/test/game-update/g1", "application/json", nil); err != nil {
		t.Fatalf("Seed failed: %v", err)
	} else {
		resp.Body.Close()
	}

	resp, err := http.Post(h.http.URL+"/api/test/simulate-update/g1", "application/json", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	snap, _, _ := h.store.Get(context.Background(), "g1")
	if snap.GameState.ShotClock >= 24.0 {
		t.Errorf("Shot clock should have run, still %v", snap.GameState.ShotClock)
	}
}

func TestWebSocket_ConnectWithoutState(t *testing.T) {
	h := newHarness(t)
	conn := h.wsDial(t, "g1")

	msgType, data := readEnvelope(t, conn)
	if msgType != network.MsgTypeConnectionStatus {
		t.Fatalf("First frame must be connection_status, got %s", msgType)
	}
	var status network.ConnectionStatus
	json.Unmarshal(data, &status)
	if status.Status != "connected" || status.GameID != "g1" {
		t.Errorf("Unexpected status frame: %+v", status)
	}

	msgType, data = readEnvelope(t, conn)
	if msgType != network.MsgTypeInfo {
		t.Fatalf("Expected info for a fresh session, got %s: %s", msgType, data)
	}
}

func TestWebSocket_ConnectWithState(t *testing.T) {
	h := newHarness(t)

	seeded := services.NewSnapshotService(h.store).SeedSnapshot("g1", "home", time.Now())
	h.store.Set(context.Background(), "g1", seeded)

	conn := h.wsDial(t, "g1")
	readUntil(t, conn, network.MsgTypeConnectionStatus)

	data := readUntil(t, conn, network.MsgTypeInitialState)
	var initial network.InitialState
	if err := json.Unmarshal(data, &initial); err != nil {
		t.Fatalf("Undecodable initial_state: %v", err)
	}
	if initial.Data.GameState.GameID != "g1" {
		t.Errorf("Expected game_id g1, got %s", initial.Data.GameState.GameID)
	}
	if len(initial.Data.PlayerPositions) != 3 {
		t.Errorf("Expected 3 players, got %d", len(initial.Data.PlayerPositions))
	}
}

func TestWebSocket_RequestUpdate(t *testing.T) {
	h := newHarness(t)

	seeded := services.NewSnapshotService(h.store).SeedSnapshot("g1", "home", time.Now())
	h.store.Set(context.Background(), "g1", seeded)

	conn := h.wsDial(t, "g1")
	readUntil(t, conn, network.MsgTypeInitialState)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"request_update"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data := readUntil(t, conn, network.MsgTypeGameStateUpdate)
	var update struct {
		Type string                 `json:"type"`
		Data models.SessionSnapshot `json:"data"`
	}
	if err := json.Unmarshal(data, &update); err != nil {
		t.Fatalf("Undecodable game_state_update: %v", err)
	}
	if update.Data.GameState.GameID != "g1" {
		t.Errorf("Expected game_id g1, got %s", update.Data.GameState.GameID)
	}
}

func TestWebSocket_MalformedMessageKeepsConnection(t *testing.T) {
	h := newHarness(t)
	conn := h.wsDial(t, "g1")
	readUntil(t, conn, network.MsgTypeInfo)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data := readUntil(t, conn, network.MsgTypeError)
	var errMsg network.ErrorMessage
	json.Unmarshal(data, &errMsg)
	if !strings.HasPrefix(errMsg.Message, "Error processing message") {
		t.Errorf("Unexpected error message %q", errMsg.Message)
	}

	// The connection survives: a valid request still gets an answer.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"request_update"}`)); err != nil {
		t.Fatalf("Write after error failed: %v", err)
	}
	readUntil(t, conn, network.MsgTypeGameStateUpdate)
}

func TestWebSocket_UnknownTypeIgnored(t *testing.T) {
	h := newHarness(t)
	conn := h.wsDial(t, "g1")
	readUntil(t, conn, network.MsgTypeInfo)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// No reply expected; the next answered frame must be for the real
	// request, not the unknown one.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"request_update"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	readUntil(t, conn, network.MsgTypeGameStateUpdate)
}

func TestWebSocket_ConnectStartsSession(t *testing.T) {
	h := newHarness(t)

	if h.streams.ActiveSessions() != 0 {
		t.Fatalf("Expected no sessions before connect, got %d", h.streams.ActiveSessions())
	}

	conn := h.wsDial(t, "g1")
	readUntil(t, conn, network.MsgTypeInfo)

	deadline := time.After(2 * time.Second)
	for h.streams.ActiveSessions() == 0 {
		select {
		case <-deadline:
			t.Fatal("Session loop never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
