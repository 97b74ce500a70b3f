// simulation/predictor.go
package simulation

import (
	"github.com/wfunc/courtstream/models"
)

// ShotFeatures is the feature vector handed to a pluggable shot
// probability model.
type ShotFeatures struct {
	Distance  float64
	Angle     float64
	Quarter   int
	GameClock float64
	ShotClock float64
	ScoreDiff int
}

// ShotProbability replaces the built-in distance formula when present.
// Implementations must stay monotonically non-increasing in distance.
type ShotProbability interface {
	MakeProbability(f ShotFeatures) float64
}

// PredictedTarget is an externally predicted movement target for one
// player.
type PredictedTarget struct {
	X float64
	Y float64
}

// MovementPredictor supplies an alternative target point for a moving
// player. Returning ok=false falls back to the scripted role target.
type MovementPredictor interface {
	PredictTarget(p models.PlayerPosition, gs models.GameState) (PredictedTarget, bool)
}
