package engine

import (
	"github.com/pthm-cable/mlsmpm/coloring"
	"github.com/pthm-cable/mlsmpm/grid"
	"github.com/pthm-cable/mlsmpm/kernel"
	"github.com/pthm-cable/mlsmpm/particle"
	"github.com/pthm-cable/mlsmpm/rigid"
)

// rasterizePhase is the Particle-to-Grid (P2G) kernel (spec §4.E): each
// particle's mass, momentum and stress are projected onto its 27-cell
// stencil, diverting into rigid-body impulse accumulation wherever the
// particle and a grid node disagree about which side of a cut they're on.
func (e *Engine) rasterizePhase(dt float32) error {
	e.Rigids.ForEach(func(b rigid.Body) { b.ResetTmpVelocity() })

	invDx := e.Cfg.Derived.InvDx
	dx := e.Cfg.Derived.Dx32
	gravity := [3]float32{
		float32(e.Cfg.Physics.GravityX),
		float32(e.Cfg.Physics.GravityY),
		float32(e.Cfg.Physics.GravityZ),
	}

	err := e.Scheduler.ForEachBlock(e.Grid, true, func(blockIndex int, blockOffset uint64, cells []grid.GridState) error {
		cache := grid.NewCache(e.Grid.BlockDims())
		if err := cache.Load(e.Grid, blockOffset); err != nil {
			return err
		}

		ox, oy, oz := e.Grid.BlockOrigin(blockOffset)

		for _, pi := range e.blocks[blockOffset] {
			p := &e.Particles[pi]
			if e.Cfg.Physics.ParticleGravity {
				for a := 0; a < e.Dim; a++ {
					p.Velocity[a] += gravity[a] * dt
				}
			}

			posGrid := [3]float32{p.Pos[0] * invDx, p.Pos[1] * invDx, p.Pos[2] * invDx}
			stencil := kernel.Build(posGrid, e.Dim)

			model := e.Materials.For(p.Material)
			stressDt := model.Force(p).Scale(dt)

			jMax, kMax := 0, 0
			if e.Dim > 1 {
				jMax = 2
			}
			if e.Dim > 2 {
				kMax = 2
			}
			for i := 0; i <= 2; i++ {
				for j := 0; j <= jMax; j++ {
					for k := 0; k <= kMax; k++ {
						w := stencil.Weight3D(e.Dim, i, j, k)
						if w == 0 {
							continue
						}
						dpos := stencil.Dpos(e.Dim, i, j, k)

						gx := stencil.Base[0] + int32(i)
						gy := stencil.Base[1] + int32(j)
						gz := stencil.Base[2] + int32(k)
						lx := int(gx - ox)
						ly := int(gy - oy)
						lz := int(gz - oz)
						cell := cache.At(lx, ly, lz)

						mask := coloring.CutMask(cell.States, p.States)
						if mask != 0 && coloring.OnOppositeSides(cell.States, p.States, mask) {
							e.accumulateRigidImpulse(p, cell, w, dpos, stressDt, invDx, dx, gx, gy, gz)
							continue
						}

						cell.States = coloring.Merge(cell.States, p.States)
						cell.ParticleCount++

						stressGrad := stressDt.MulVec(dpos)
						apicTerm := p.ApicB.MulVec(dpos)
						for a := 0; a < e.Dim; a++ {
							cell.VelocityAndMass[a] += w * (p.Mass*(p.Velocity[a]+apicTerm[a]) - stressGrad[a]*4*invDx)
						}
						cell.VelocityAndMass[3] += w * p.Mass
					}
				}
			}
		}
		return cache.WriteBack(e.Grid)
	})
	if err != nil {
		return err
	}

	e.Rigids.ForEach(func(b rigid.Body) { b.ApplyTmpVelocity() })
	return nil
}

// accumulateRigidImpulse implements the cut branch of spec §4.E step 4: the
// particle does not transfer momentum through the surface; instead an
// impulse is accumulated onto the rigid body it's cut against.
func (e *Engine) accumulateRigidImpulse(p *particle.MPMParticle, cell *grid.GridState, w float32, dpos [3]float32, stressDt particle.Mat3, invDx, dx float32, gx, gy, gz int32) {
	rigidID := cell.RigidID()
	if rigidID < 0 {
		return
	}
	body, ok := e.Rigids.Get(rigidID)
	if !ok {
		return
	}

	side := p.SideTag(rigidID)
	frictions := body.Frictions()
	mu := frictions[side&1]

	posGridWorld := [3]float32{
		float32(gx) * dx,
		float32(gy) * dx,
		float32(gz) * dx,
	}
	vBase := body.VelocityAt(posGridWorld)
	projected := coloring.FrictionProject(p.Velocity, vBase, p.BoundaryNormal, mu)

	grad := stressDt.MulVec(dpos)
	var impulse [3]float32
	for a := 0; a < 3; a++ {
		impulse[a] = p.Mass*w*(p.Velocity[a]-projected[a]) + grad[a]
	}
	body.ApplyTmpImpulse(impulse, posGridWorld)
}
