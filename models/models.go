// models/models.go
package models

import (
	"sort"
	"time"
)

// Role is a player's position on the floor.
type Role string

const (
	RolePointGuard    Role = "PG"
	RoleShootingGuard Role = "SG"
	RoleCenter        Role = "C"
)

// Phase is the per-player step of the shot state machine. ShotResolved is
// transient: it survives exactly one published snapshot before clearing
// back to Idle.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseMoving       Phase = "moving"
	PhaseShotAttempt  Phase = "shot_attempt"
	PhaseShotResolved Phase = "shot_resolved"
)

// Court bounds in feet. Players are clamped here; positions outside these
// bounds never appear in a published snapshot.
const (
	CourtMinX = -23.0
	CourtMaxX = 23.0
	CourtMinY = 2.0
	CourtMaxY = 45.0
)

// GameState 比赛状态
type GameState struct {
	GameID     string    `json:"game_id"`
	Timestamp  time.Time `json:"timestamp"`
	ShotClock  float64   `json:"shot_clock"`
	GameClock  float64   `json:"game_clock"`
	Quarter    int       `json:"quarter"`
	ScoreHome  int       `json:"score_home"`
	ScoreAway  int       `json:"score_away"`
	LastAction string    `json:"last_action,omitempty"`
}

// PlayerPosition 球员位置
type PlayerPosition struct {
	PlayerID   string  `json:"player_id"`
	Role       Role    `json:"role"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VelocityX  float64 `json:"velocity_x"`
	VelocityY  float64 `json:"velocity_y"`
	TeamID     string  `json:"team_id"`
	IsShooting bool    `json:"is_shooting"`
	ShotMade   bool    `json:"shot_made"`
	Phase      Phase   `json:"phase,omitempty"`
}

// SessionSnapshot is the unit of merge, persistence and broadcast: the
// full observable state of one session at one tick.
type SessionSnapshot struct {
	GameState       GameState        `json:"game_state"`
	PlayerPositions []PlayerPosition `json:"player_positions"`
}

// FeedUpdate is the decoded portion of one external feed payload. Fields
// left nil leave the corresponding slice of the snapshot untouched on
// merge.
type FeedUpdate struct {
	GameState       *GameState       `json:"game_state,omitempty"`
	PlayerPositions []PlayerPosition `json:"player_positions,omitempty"`
}

// SortPlayers orders positions by player ID. Snapshot player order is
// stable across merge, simulation and broadcast.
func (s *SessionSnapshot) SortPlayers() {
	sort.Slice(s.PlayerPositions, func(i, j int) bool {
		return s.PlayerPositions[i].PlayerID < s.PlayerPositions[j].PlayerID
	})
}

// Clone deep-copies the snapshot so the stream loop can hand it out
// without sharing its working copy.
func (s *SessionSnapshot) Clone() SessionSnapshot {
	out := SessionSnapshot{GameState: s.GameState}
	out.PlayerPositions = make([]PlayerPosition, len(s.PlayerPositions))
	copy(out.PlayerPositions, s.PlayerPositions)
	return out
}
