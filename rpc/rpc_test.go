package rpc

import (
	"context"
	"net/rpc"
	"os"
	"testing"
	"time"

	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/persistence"
	"github.com/wfunc/courtstream/services"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

func TestGetSnapshotOverRPC(t *testing.T) {
	store := persistence.NewMemoryStore()
	snapshots := services.NewSnapshotService(store)

	seeded := snapshots.SeedSnapshot("g1", "home", time.Now())
	store.Set(context.Background(), "g1", seeded)

	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create RPC server: %v", err)
	}
	defer srv.Stop()

	rpc.Register(NewSnapshotService(snapshots))
	go srv.Start()

	client, err := rpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer client.Close()

	var reply GetSnapshotReply
	if err := client.Call("SnapshotService.GetSnapshot", &GetSnapshotArgs{SessionID: "g1"}, &reply); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !reply.Found {
		t.Fatal("Expected snapshot to be found")
	}
	if reply.Snapshot.GameState.GameID != "g1" {
		t.Errorf("Expected game_id g1, got %s", reply.Snapshot.GameState.GameID)
	}
	if len(reply.Snapshot.PlayerPositions) != 3 {
		t.Errorf("Expected 3 players, got %d", len(reply.Snapshot.PlayerPositions))
	}

	var missing GetSnapshotReply
	if err := client.Call("SnapshotService.GetSnapshot", &GetSnapshotArgs{SessionID: "nope"}, &missing); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if missing.Found {
		t.Error("Expected missing session to report not found")
	}
}
