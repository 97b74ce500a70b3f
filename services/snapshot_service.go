// services/snapshot_service.go
package services

import (
	"context"
	"time"

	"github.com/wfunc/courtstream/models"
	"github.com/wfunc/courtstream/persistence"
)

// SnapshotService wraps the store with read helpers and the canonical
// test-harness seed.
type SnapshotService struct {
	store persistence.Store
}

func NewSnapshotService(store persistence.Store) *SnapshotService {
	return &SnapshotService{store: store}
}

// GetSnapshot 读取会话快照
func (s *SnapshotService) GetSnapshot(ctx context.Context, sessionID string) (models.SessionSnapshot, bool, error) {
	return s.store.Get(ctx, sessionID)
}

// SeedSnapshot builds the canonical fresh game for a session: full
// clocks, first quarter, scoreless, one player per role at the standard
// warm-up spots.
func (s *SnapshotService) SeedSnapshot(sessionID string, homeTeamID string, now time.Time) models.SessionSnapshot {
	snap := models.SessionSnapshot{
		GameState: models.GameState{
			GameID:    sessionID,
			Timestamp: now,
			ShotClock: 24.0,
			GameClock: 720.0,
			Quarter:   1,
			ScoreHome: 0,
			ScoreAway: 0,
		},
		PlayerPositions: []models.PlayerPosition{
			{
				PlayerID: "p-c",
				Role:     models.RoleCenter,
				X:        10.0,
				Y:        35.0,
				TeamID:   homeTeamID,
				Phase:    models.PhaseIdle,
			},
			{
				PlayerID: "p-pg",
				Role:     models.RolePointGuard,
				X:        0.0,
				Y:        23.5,
				TeamID:   homeTeamID,
				Phase:    models.PhaseIdle,
			},
			{
				PlayerID: "p-sg",
				Role:     models.RoleShootingGuard,
				X:        -10.0,
				Y:        35.0,
				TeamID:   homeTeamID,
				Phase:    models.PhaseIdle,
			},
		},
	}
	snap.SortPlayers()
	return snap
}
