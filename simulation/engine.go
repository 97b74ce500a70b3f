// simulation/engine.go
package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/wfunc/courtstream/models"
)

// Court reference points and per-tick clock decrements, in feet and
// seconds. The basket sits behind the free-throw line on the scoring end.
const (
	BasketX = 0.0
	BasketY = 5.5

	ThreePointDistance = 23.75

	shotClockPerTick = 2.4
	gameClockPerTick = 24.0
)

// Built-in make-probability bounds. Closer always means a higher chance;
// the floor keeps desperation heaves possible.
const (
	makeProbCeiling = 0.90
	makeProbFloor   = 0.15
	makeProbSlope   = 0.02
)

type Config struct {
	ShotChance float64
	HomeTeamID string
}

// Engine 比赛模拟引擎
// Advance is a pure transition: same snapshot, same rng state, same
// output. All randomness goes through the injected source.
type Engine struct {
	cfg      Config
	rng      *rand.Rand
	movement MovementPredictor
	shots    ShotProbability
}

func NewEngine(cfg Config, rng *rand.Rand) *Engine {
	return &Engine{cfg: cfg, rng: rng}
}

// SetMovementPredictor installs an external movement model. Nil keeps the
// scripted role targets.
func (e *Engine) SetMovementPredictor(m MovementPredictor) {
	e.movement = m
}

// SetShotProbability installs an external shot model. Nil keeps the
// distance formula.
func (e *Engine) SetShotProbability(s ShotProbability) {
	e.shots = s
}

// Advance runs one tick: clear last tick's transient shot state, run the
// clocks down, pick at most one shooter, move everyone else, clamp to the
// court.
func (e *Engine) Advance(snap models.SessionSnapshot, now time.Time) models.SessionSnapshot {
	out := snap.Clone()
	gs := &out.GameState

	gs.Timestamp = now
	gs.ShotClock = floorZero(gs.ShotClock - shotClockPerTick)
	gs.GameClock = floorZero(gs.GameClock - gameClockPerTick)

	players := out.PlayerPositions
	for i := range players {
		if players[i].Phase == models.PhaseShotResolved {
			players[i].Phase = models.PhaseIdle
		}
		players[i].IsShooting = false
		players[i].ShotMade = false
	}

	shooter := -1
	if len(players) > 0 && e.rng.Float64() < e.cfg.ShotChance {
		shooter = e.rng.Intn(len(players))
	}

	for i := range players {
		if i == shooter {
			e.resolveShot(gs, &players[i])
		} else {
			e.movePlayer(gs, &players[i])
		}
		players[i].X = clamp(players[i].X, models.CourtMinX, models.CourtMaxX)
		players[i].Y = clamp(players[i].Y, models.CourtMinY, models.CourtMaxY)
	}

	out.SortPlayers()
	return out
}

// resolveShot classifies and samples one shot attempt, updates the score
// and leaves the player in ShotResolved for exactly this snapshot.
func (e *Engine) resolveShot(gs *models.GameState, p *models.PlayerPosition) {
	distance := math.Hypot(p.X-BasketX, p.Y-BasketY)

	points := 2
	if distance > ThreePointDistance {
		points = 3
	}

	prob := e.makeProbability(gs, p, distance)
	made := e.rng.Float64() < prob

	p.IsShooting = true
	p.ShotMade = made
	p.Phase = models.PhaseShotResolved
	p.VelocityX = 0
	p.VelocityY = 0

	verb := "missed"
	if made {
		verb = "made"
		if p.TeamID == e.cfg.HomeTeamID {
			gs.ScoreHome += points
		} else {
			gs.ScoreAway += points
		}
	}
	gs.LastAction = fmt.Sprintf("%s %s a %d-point attempt from %.1f ft", p.PlayerID, verb, points, distance)
}

func (e *Engine) makeProbability(gs *models.GameState, p *models.PlayerPosition, distance float64) float64 {
	if e.shots != nil {
		f := ShotFeatures{
			Distance:  distance,
			Angle:     math.Atan2(p.Y-BasketY, p.X-BasketX),
			Quarter:   gs.Quarter,
			GameClock: gs.GameClock,
			ShotClock: gs.ShotClock,
			ScoreDiff: gs.ScoreHome - gs.ScoreAway,
		}
		return clamp(e.shots.MakeProbability(f), 0, 1)
	}
	return clamp(makeProbCeiling-makeProbSlope*distance, makeProbFloor, makeProbCeiling)
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
