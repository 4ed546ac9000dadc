// Command bench is a minimal synthetic harness for the transfer engine: it
// builds a grid, emits a block of particles of a chosen material over a
// noise-perturbed terrain heightfield, runs N steps, and prints telemetry
// stats. It is not a scenario scripting tool (no input-file format), the
// same narrow scope as the teacher's cmd/shaderdebug and cmd/potentialpreview.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/mlsmpm/engine"
	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
	"github.com/pthm-cable/mlsmpm/rigid"
	"github.com/pthm-cable/mlsmpm/telemetry"
)

var (
	steps     = flag.Int("steps", 100, "number of Step() calls to run")
	dt        = flag.Float64("dt", 1e-4, "timestep")
	material  = flag.String("material", "sand", "particle material: elastic, jelly, linear, snow, sand, von_mises, visco, water, nonlocal")
	seed      = flag.Int64("seed", 1, "terrain noise seed")
	cubeCells = flag.Int("cube", 16, "emitted particle cube side length, in particles")
	csvOut    = flag.String("csv", "", "optional path to write per-step telemetry CSV")
)

var materialTags = map[string]particle.MaterialTag{
	"elastic":   particle.TagElastic,
	"jelly":     particle.TagJelly,
	"linear":    particle.TagLinear,
	"snow":      particle.TagSnow,
	"sand":      particle.TagSand,
	"von_mises": particle.TagVonMises,
	"visco":     particle.TagVisco,
	"water":     particle.TagWater,
	"nonlocal":  particle.TagNonlocal,
}

func main() {
	flag.Parse()

	tag, ok := materialTags[*material]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown material %q\n", *material)
		os.Exit(1)
	}

	cfg, err := mpmconfig.Load("")
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	rigids := rigid.NewStaticRegistry()
	if err := rigids.AddPlane(0, [3]float32{0, 2 * cfg.Derived.Dx32, 0}, [3]float32{0, 1, 0}, 0.5, 0.3); err != nil {
		slog.Error("registering floor plane", "err", err)
		os.Exit(1)
	}

	e := engine.New(cfg, rigids, 3, 0)
	emitTerrainCube(e, tag, *seed, *cubeCells)

	perf := telemetry.NewPerfCollector(cfg.Telemetry.WindowSize)

	var rows []telemetry.PerfStatsCSV
	for i := 0; i < *steps; i++ {
		perf.StartTick()
		if err := e.Step(float32(*dt)); err != nil {
			slog.Error("step failed", "step", i, "err", err)
			os.Exit(1)
		}
		perf.EndTick()

		if *csvOut != "" {
			rows = append(rows, perf.Stats().ToCSV(int32(i)))
		}
	}

	if *csvOut != "" {
		file, err := os.Create(*csvOut)
		if err != nil {
			slog.Error("creating csv output", "err", err)
			os.Exit(1)
		}
		defer file.Close()
		if err := gocsv.MarshalFile(&rows, file); err != nil {
			slog.Error("writing csv output", "err", err)
			os.Exit(1)
		}
	}

	perf.Stats().LogStats()
	slog.Info("bench complete", "steps", *steps, "particles", len(e.Particles), "material", *material)
}

// emitTerrainCube fills a cube of particles of the given material, with the
// emission height perturbed by 2D OpenSimplex noise so the initial pile
// isn't a perfectly flat slab (the synthetic granular-terrain scenario
// named in spec.md §1).
func emitTerrainCube(e *engine.Engine, tag particle.MaterialTag, seed int64, side int) {
	noise := opensimplex.New(seed)
	dx := e.Cfg.Derived.Dx32
	originX, originZ := float32(e.Cfg.Grid.ResX)/3*dx, float32(e.Cfg.Grid.ResZ)/3*dx
	baseY := float32(4) * dx

	const density = 1000.0
	vol := dx * dx * dx / 8 // ~2 particles per cell per axis
	mass := float32(density) * vol

	for ix := 0; ix < side; ix++ {
		for iz := 0; iz < side; iz++ {
			nx, nz := float64(ix)/float64(side), float64(iz)/float64(side)
			heightNoise := (noise.Eval2(nx*4, nz*4) + 1) * 0.5
			height := int(heightNoise*float64(side)/4) + 1

			for iy := 0; iy < height; iy++ {
				pos := [3]float32{
					originX + float32(ix)*dx*0.5,
					baseY + float32(iy)*dx*0.5,
					originZ + float32(iz)*dx*0.5,
				}
				p := particle.NewMPMParticle(pos, mass, vol, tag)
				e.AddParticle(p)
			}
		}
	}
}
