package engine

import (
	"github.com/pthm-cable/mlsmpm/coloring"
	"github.com/pthm-cable/mlsmpm/grid"
	"github.com/pthm-cable/mlsmpm/kernel"
	"github.com/pthm-cable/mlsmpm/particle"
	"github.com/pthm-cable/mlsmpm/rigid"
	"gonum.org/v1/gonum/blas/blas32"
)

// resamplePhase is the Grid-to-Particle (G2P) kernel (spec §4.F): gather
// grid velocity back onto each particle, rebuild the APIC affine and
// quadratic carriers, run plasticity, and advance position with the
// rigid-boundary penalty law.
func (e *Engine) resamplePhase(dt float32) error {
	e.Rigids.ForEach(func(b rigid.Body) { b.ResetTmpVelocity() })

	invDx := e.Cfg.Derived.InvDx
	dx := e.Cfg.Derived.Dx32
	dampB := float32(e.Cfg.Physics.DampB)
	dampC := float32(e.Cfg.Physics.DampC)
	pushingForce := float32(e.Cfg.Physics.PushingForce)
	penalty := float32(e.Cfg.Physics.BoundaryPenalty)
	eps := float32(e.Cfg.Physics.BoundaryEps)

	maxX := float32(e.Cfg.Grid.ResX)*dx - eps
	maxY := float32(e.Cfg.Grid.ResY)*dx - eps
	maxZ := float32(e.Cfg.Grid.ResZ)*dx - eps

	err := e.Scheduler.ForEachBlock(e.Grid, true, func(blockIndex int, blockOffset uint64, cells []grid.GridState) error {
		cache := grid.NewCache(e.Grid.BlockDims())
		if err := cache.Load(e.Grid, blockOffset); err != nil {
			return err
		}
		ox, oy, oz := e.Grid.BlockOrigin(blockOffset)

		for _, pi := range e.blocks[blockOffset] {
			p := &e.Particles[pi]

			posGrid := [3]float32{p.Pos[0] * invDx, p.Pos[1] * invDx, p.Pos[2] * invDx}
			stencil := kernel.Build(posGrid, e.Dim)

			var v [3]float32
			var b, c, cdg particle.Mat3

			nearBoundary := p.BoundaryDistance > -dx && p.BoundaryDistance < dx

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

						gridV := cell.Velocity(e.Dim)

						mask := coloring.CutMask(cell.States, p.States)
						if mask != 0 && coloring.OnOppositeSides(cell.States, p.States, mask) {
							gridV = e.fakeVelocity(p, cell, dt, dx, pushingForce, nearBoundary)
						}

						for a := 0; a < e.Dim; a++ {
							v[a] += w * gridV[a]
						}
						for a := 0; a < e.Dim; a++ {
							for d := 0; d < e.Dim; d++ {
								b[a][d] += w * gridV[a] * dpos[d]
								shifted := dpos[(d+1)%e.Dim]
								c[a][d] += w * gridV[a] * shifted
							}
						}

						grad := stencil.Grad3D(e.Dim, i, j, k, invDx)
						for a := 0; a < e.Dim; a++ {
							for d := 0; d < e.Dim; d++ {
								cdg[a][d] += gridV[a] * grad[d]
							}
						}
					}
				}
			}

			if nearBoundary {
				b = particle.Mat3{}
				c = particle.Mat3{}
			} else {
				b = dampMat3(b, dampB)
				c = dampMat3(c, dampC)
			}

			p.Velocity = v
			p.ApicB = b
			p.ApicC = c

			var fInc particle.Mat3
			if e.Cfg.Grid.UseMLS {
				fInc = particle.Identity3().Add(b.Scale(dt * -4 * invDx))
			} else {
				fInc = particle.Identity3().Add(cdg.Scale(dt))
			}

			lapGf := laplacianGfAt(cache, int(stencil.Base[0]-ox), int(stencil.Base[1]-oy), int(stencil.Base[2]-oz))
			model := e.Materials.For(p.Material)
			model.Plasticity(p, fInc, lapGf)

			for a := 0; a < e.Dim; a++ {
				p.Pos[a] += dt * v[a]
			}
			p.Pos[0] = clamp(p.Pos[0], 0, maxX)
			p.Pos[1] = clamp(p.Pos[1], 0, maxY)
			p.Pos[2] = clamp(p.Pos[2], 0, maxZ)

			if p.BoundaryDistance > -0.3*dx && p.BoundaryDistance < -0.05*dx {
				var correction [3]float32
				for a := 0; a < e.Dim; a++ {
					correction[a] = p.BoundaryDistance * p.BoundaryNormal[a] * penalty
					p.Velocity[a] -= correction[a]
				}
				if rigidID := p.FirstActiveRigid(); rigidID >= 0 {
					if body, ok := e.Rigids.Get(rigidID); ok {
						var opposite [3]float32
						for a := 0; a < 3; a++ {
							opposite[a] = -p.Mass * correction[a]
						}
						body.ApplyTmpImpulse(opposite, p.Pos)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.Rigids.ForEach(func(b rigid.Body) { b.ApplyTmpVelocity() })
	return nil
}

// fakeVelocity implements spec §4.F step 2's substitution for a cut stencil
// cell: friction-project onto the rigid body's surface velocity and, near a
// boundary, add a small pushing-away term so particles don't settle exactly
// on the interface. Away from the boundary the substitution is a no-op
// (the particle's own velocity), per spec.
func (e *Engine) fakeVelocity(p *particle.MPMParticle, cell *grid.GridState, dt, dx, pushingForce float32, nearBoundary bool) [3]float32 {
	if !nearBoundary {
		return p.Velocity
	}
	rigidID := cell.RigidID()
	if rigidID < 0 {
		return p.Velocity
	}
	body, ok := e.Rigids.Get(rigidID)
	if !ok {
		return p.Velocity
	}
	side := p.SideTag(rigidID)
	mu := body.Frictions()[side&1]
	vBase := body.VelocityAt(p.Pos)

	projected := coloring.FrictionProject(p.Velocity, vBase, p.BoundaryNormal, mu)
	var fake [3]float32
	for a := 0; a < 3; a++ {
		fake[a] = projected[a] + p.BoundaryNormal[a]*(dt*dx*pushingForce)
	}
	return fake
}

// laplacianGfAt approximates the Laplacian of the grid's granular-fluidity
// field at a particle's base cell via a standard 6-point central-difference
// stencil over the cache's halo; only the Nonlocal material consumes this,
// every other model ignores the lapGf argument to Plasticity.
func laplacianGfAt(cache *grid.Cache, cx, cy, cz int) float32 {
	center := cache.At(cx, cy, cz).GranularFluidity
	neighbors := [6][3]int{
		{cx - 1, cy, cz}, {cx + 1, cy, cz},
		{cx, cy - 1, cz}, {cx, cy + 1, cz},
		{cx, cy, cz - 1}, {cx, cy, cz + 1},
	}
	var sum float32
	count := 0
	for _, n := range neighbors {
		if n[0] < 0 || n[1] < 0 || n[2] < 0 {
			continue
		}
		sum += cache.At(n[0], n[1], n[2]).GranularFluidity
		count++
	}
	if count == 0 {
		return 0
	}
	return sum - float32(count)*center
}

// dampMat3 scales m's nine components by factor via blas32.Scal, the same
// vectorized-scale-over-a-contiguous-buffer shape the teacher's SIMD
// benchmarks exercise.
func dampMat3(m particle.Mat3, factor float32) particle.Mat3 {
	flat := make([]float32, 9)
	idx := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			flat[idx] = m[i][j]
			idx++
		}
	}
	blas32.Scal(factor, blas32.Vector{N: 9, Inc: 1, Data: flat})
	var out particle.Mat3
	idx = 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = flat[idx]
			idx++
		}
	}
	return out
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
