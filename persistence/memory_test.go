package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/wfunc/courtstream/models"
)

func sampleSnapshot(gameID string) models.SessionSnapshot {
	return models.SessionSnapshot{
		GameState: models.GameState{GameID: gameID, ShotClock: 24, GameClock: 720, Quarter: 1},
		PlayerPositions: []models.PlayerPosition{
			{PlayerID: "p-pg", Role: models.RolePointGuard, X: 0, Y: 23.5, TeamID: "home", Phase: models.PhaseIdle},
		},
	}
}

func TestMemoryStore_Roundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "g1", sampleSnapshot("g1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	snap, ok, err := store.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected snapshot to be found")
	}
	if snap.GameState.GameID != "g1" {
		t.Errorf("Expected game_id g1, got %s", snap.GameState.GameID)
	}
	if len(snap.PlayerPositions) != 1 {
		t.Errorf("Expected 1 player, got %d", len(snap.PlayerPositions))
	}
}

func TestMemoryStore_Absent(t *testing.T) {
	store := NewMemoryStore()

	snap, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected absent snapshot")
	}
	if snap.GameState.GameID != "" {
		t.Errorf("Expected zero snapshot, got %+v", snap.GameState)
	}
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := sampleSnapshot("g1")
	store.Set(ctx, "g1", original)

	// Mutating what the caller handed in must not reach the store.
	original.PlayerPositions[0].X = 99
	first, _, _ := store.Get(ctx, "g1")
	if first.PlayerPositions[0].X == 99 {
		t.Error("Store shares memory with the caller's snapshot")
	}

	// Mutating what Get returned must not reach later readers.
	first.PlayerPositions[0].Y = -50
	second, _, _ := store.Get(ctx, "g1")
	if second.PlayerPositions[0].Y == -50 {
		t.Error("Get returned a shared snapshot")
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "g1", sampleSnapshot("g1"))

	updated := sampleSnapshot("g1")
	updated.GameState.Quarter = 4
	store.Set(ctx, "g1", updated)

	snap, _, _ := store.Get(ctx, "g1")
	if snap.GameState.Quarter != 4 {
		t.Errorf("Expected quarter 4 after overwrite, got %d", snap.GameState.Quarter)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set(ctx, "g1", sampleSnapshot("g1"))
		}()
		go func() {
			defer wg.Done()
			store.Get(ctx, "g1")
		}()
	}
	wg.Wait()
}

func TestKey(t *testing.T) {
	if Key("g1") != "game_state:g1" {
		t.Errorf("Unexpected key %q", Key("g1"))
	}
}
