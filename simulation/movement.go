// simulation/movement.go
package simulation

import (
	"math"

	"github.com/wfunc/courtstream/models"
)

// Movement tuning, feet per tick.
const (
	minSpeed      = 1.5
	maxSpeed      = 6.0
	arriveEpsilon = 1.0
)

// movePlayer advances one non-shooting player: pick a target (predicted
// if a movement model is installed, otherwise the scripted role zone),
// set velocity toward it at a bounded random speed, integrate one tick.
func (e *Engine) movePlayer(gs *models.GameState, p *models.PlayerPosition) {
	var tx, ty float64
	if e.movement != nil {
		if t, ok := e.movement.PredictTarget(*p, *gs); ok {
			tx, ty = t.X, t.Y
		} else {
			tx, ty = e.roleTarget(p.Role)
		}
	} else {
		tx, ty = e.roleTarget(p.Role)
	}

	dx := tx - p.X
	dy := ty - p.Y
	dist := math.Hypot(dx, dy)

	if dist < arriveEpsilon {
		p.Phase = models.PhaseIdle
		p.VelocityX = 0
		p.VelocityY = 0
		return
	}

	speed := minSpeed + e.rng.Float64()*(maxSpeed-minSpeed)
	if speed > dist {
		speed = dist
	}

	p.Phase = models.PhaseMoving
	p.VelocityX = dx / dist * speed
	p.VelocityY = dy / dist * speed
	p.X += p.VelocityX
	p.Y += p.VelocityY
}

// roleTarget samples the scripted zone for a role: point guards work the
// top of the key, shooting guards drift along the three-point arc,
// centers hold the paint.
func (e *Engine) roleTarget(role models.Role) (float64, float64) {
	switch role {
	case models.RolePointGuard:
		return e.inBox(-6, 6, 18, 24)
	case models.RoleShootingGuard:
		// Random angle on the arc, radius jittered around the line.
		angle := math.Pi/6 + e.rng.Float64()*(math.Pi*2/3)
		radius := ThreePointDistance - 1 + e.rng.Float64()*2
		return BasketX + radius*math.Cos(angle), BasketY + radius*math.Sin(angle)
	case models.RoleCenter:
		return e.inBox(-8, 8, 4, 14)
	default:
		return e.inBox(models.CourtMinX, models.CourtMaxX, models.CourtMinY, models.CourtMaxY)
	}
}

func (e *Engine) inBox(minX, maxX, minY, maxY float64) (float64, float64) {
	x := minX + e.rng.Float64()*(maxX-minX)
	y := minY + e.rng.Float64()*(maxY-minY)
	return x, y
}
