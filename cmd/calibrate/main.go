// Command calibrate fits Elastic's (youngs_modulus, poisson_ratio) to hit a
// target CFL wave speed via CMA-ES, the same optimize.Minimize shape the
// teacher's cmd/optimize drives over its own ecosystem-stability fitness
// function, retargeted at material.AllowedDT.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/mlsmpm/material"
	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

var (
	targetDT = flag.Float64("target-dt", 1e-4, "target allowed timestep at dx from config defaults")
	maxEvals = flag.Int("max-evals", 200, "CMA-ES function evaluation budget")
)

func main() {
	flag.Parse()

	cfg, err := mpmconfig.Load("")
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}
	dx := cfg.Derived.Dx32

	// x[0] = youngs_modulus (log-scaled), x[1] = poisson_ratio in (-1, 0.5).
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			youngs := math.Exp(x[0])
			nu := clampNu(x[1])
			got := allowedDTFor(youngs, nu, dx)
			diff := got - *targetDT
			return diff * diff
		},
	}

	initX := []float64{math.Log(cfg.Materials.Elastic.YoungsModulus), cfg.Materials.Elastic.PoissonRatio}
	method := &optimize.CmaEsChol{InitStepSize: 0.3}
	settings := &optimize.Settings{FuncEvaluations: *maxEvals}

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Error("optimize.Minimize failed", "err", err)
		os.Exit(1)
	}

	youngs := math.Exp(result.X[0])
	nu := clampNu(result.X[1])
	fmt.Printf("youngs_modulus: %.6g\npoisson_ratio: %.6g\nachieved_allowed_dt: %.6g (target %.6g)\n",
		youngs, nu, allowedDTFor(youngs, nu, dx), *targetDT)
}

func clampNu(nu float64) float64 {
	if nu < -0.99 {
		return -0.99
	}
	if nu > 0.49 {
		return 0.49
	}
	return nu
}

// allowedDTFor builds a throwaway Elastic model for (youngs, nu) and probes
// its AllowedDT at rest (zero velocity, identity deformation gradient).
func allowedDTFor(youngs, nu float64, dx float32) float64 {
	model := material.NewElastic(mpmconfig.ElasticConfig{YoungsModulus: youngs, PoissonRatio: nu})
	p := particle.NewMPMParticle([3]float32{}, 1, 1, particle.TagElastic)
	return float64(model.AllowedDT(&p, dx))
}
