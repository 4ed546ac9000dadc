package engine

import "github.com/pthm-cable/mlsmpm/grid"

// normalizePhase is the post-Rasterize grid normalization step (spec
// §4.E's "Post-rasterize normalization"): divide accumulated momentum by
// mass wherever mass > 0, then add gravity*dt to the resulting velocity.
// Every live block is independent here — no halo is read or written, so
// dispatch needs no color barrier.
func (e *Engine) normalizePhase(dt float32) error {
	gravity := [3]float32{
		float32(e.Cfg.Physics.GravityX),
		float32(e.Cfg.Physics.GravityY),
		float32(e.Cfg.Physics.GravityZ),
	}

	return e.Scheduler.ForEachBlock(e.Grid, false, func(blockIndex int, blockOffset uint64, cells []grid.GridState) error {
		for i := range cells {
			cell := &cells[i]
			m := cell.VelocityAndMass[3]
			if m <= 0 {
				continue
			}
			inv := 1 / m
			for a := 0; a < e.Dim; a++ {
				cell.VelocityAndMass[a] = cell.VelocityAndMass[a]*inv + gravity[a]*dt
			}
		}
		return nil
	})
}
