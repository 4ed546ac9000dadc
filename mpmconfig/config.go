// Package mpmconfig provides configuration loading for the transfer engine:
// grid geometry, scheduler knobs, and per-material parameters (spec §6).
package mpmconfig

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Materials MaterialsConfig `yaml:"materials"`
	Rigid     RigidConfig     `yaml:"rigid"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading.
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig describes the sparse paged grid's geometry.
type GridConfig struct {
	Dx          float64 `yaml:"dx"`           // cell size, world units
	ResX        int     `yaml:"res_x"`        // grid resolution in cells
	ResY        int     `yaml:"res_y"`
	ResZ        int     `yaml:"res_z"`
	BlockBitsX  int     `yaml:"block_bits_x"` // log2(Bx)
	BlockBitsY  int     `yaml:"block_bits_y"`
	BlockBitsZ  int     `yaml:"block_bits_z"`
	UseMLS      bool    `yaml:"use_mls"`
	KernelOrder int     `yaml:"kernel_order"`
}

// SchedulerConfig controls block-level parallel dispatch.
type SchedulerConfig struct {
	Workers  int  `yaml:"workers"`   // 0 = runtime.GOMAXPROCS(0)
	UseLocks bool `yaml:"use_locks"` // per-cell spinlock instead of coloring
}

// PhysicsConfig holds the step-level constants the engine needs beyond the
// grid's geometry: gravity, APIC damping, and the boundary penalty law
// (spec §4.E/§4.F).
type PhysicsConfig struct {
	GravityX        float64 `yaml:"gravity_x"`
	GravityY        float64 `yaml:"gravity_y"`
	GravityZ        float64 `yaml:"gravity_z"`
	ParticleGravity bool    `yaml:"particle_gravity"` // apply g to particle v before P2G (step 4.E.1)
	DampB           float64 `yaml:"damp_b"`           // APIC B damping factor
	DampC           float64 `yaml:"damp_c"`           // APIC-C damping factor
	PushingForce    float64 `yaml:"pushing_force"`    // rigid-contact pushing-away term (4.F step 2)
	BoundaryPenalty float64 `yaml:"boundary_penalty"` // 4.F penalty coefficient
	BoundaryEps     float64 `yaml:"boundary_eps"`     // position clamp epsilon
}

// RigidConfig bounds the rigid-body registry.
type RigidConfig struct {
	MaxRigidBodies         int     `yaml:"max_rigid_bodies"`
	DefaultFrictionOutside float64 `yaml:"default_friction_outside"`
	DefaultFrictionInside  float64 `yaml:"default_friction_inside"`
}

// TelemetryConfig sizes the rolling performance window.
type TelemetryConfig struct {
	WindowSize int `yaml:"window_size"`
}

// MaterialsConfig groups per-material-kind parameter blocks (spec §6).
type MaterialsConfig struct {
	Elastic   ElasticConfig   `yaml:"elastic"`
	Jelly     JellyConfig     `yaml:"jelly"`
	Linear    LinearConfig    `yaml:"linear"`
	Snow      SnowConfig      `yaml:"snow"`
	Sand      SandConfig      `yaml:"sand"`
	VonMises  VonMisesConfig  `yaml:"von_mises"`
	Visco     ViscoConfig     `yaml:"visco"`
	Water     WaterConfig     `yaml:"water"`
	Nonlocal  NonlocalConfig  `yaml:"nonlocal"`
}

// ElasticConfig parameterizes the StVK-Hencky model.
type ElasticConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
}

// JellyConfig parameterizes the fixed-corotated model.
type JellyConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
}

// LinearConfig parameterizes small-strain linear elasticity.
type LinearConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
}

// SnowConfig parameterizes corotated elasto-plasticity with hardening.
type SnowConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
	Hardening     float64 `yaml:"hardening"`
	ThetaC        float64 `yaml:"theta_c"`
	ThetaS        float64 `yaml:"theta_s"`
	MinJp         float64 `yaml:"min_Jp"`
	MaxJp         float64 `yaml:"max_Jp"`
	InitialJp     float64 `yaml:"Jp"`
}

// SandConfig parameterizes Drucker-Prager sand plasticity.
type SandConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
	FrictionAngle float64 `yaml:"friction_angle"` // radians
	Cohesion      float64 `yaml:"cohesion"`
	Beta          float64 `yaml:"beta"` // dilatancy factor
}

// VonMisesConfig parameterizes deviatoric return-mapping plasticity.
type VonMisesConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
	YieldStress   float64 `yaml:"yield_stress"`
}

// ViscoConfig parameterizes the rate-dependent viscous flow model.
type ViscoConfig struct {
	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
	Tau           float64 `yaml:"tau"`
	Nu            float64 `yaml:"nu"`
	Kappa         float64 `yaml:"kappa"`
}

// WaterConfig parameterizes the Tait equation-of-state fluid.
type WaterConfig struct {
	K     float64 `yaml:"k"`
	Gamma float64 `yaml:"gamma"`
}

// NonlocalConfig parameterizes the non-local granular fluidity (NGF) rheology.
type NonlocalConfig struct {
	SMod            float64 `yaml:"S_mod"`
	BMod            float64 `yaml:"B_mod"`
	AMat            float64 `yaml:"A_mat"`
	Dia             float64 `yaml:"dia"`
	Density         float64 `yaml:"density"`
	CriticalDensity float64 `yaml:"critical_density"`
	MuS             float64 `yaml:"mu_s"`
	Mu2             float64 `yaml:"mu_2"`
	I0              float64 `yaml:"I_0"`
	T0              float64 `yaml:"t_0"`
	BaseDeltaT      float64 `yaml:"base_delta_t"`
}

// DerivedConfig holds values computed after loading.
type DerivedConfig struct {
	InvDx      float32 // 1/dx
	Dx32       float32
	BlockCells int // Bx*By*Bz
	BlockDims  [3]int
}

// global holds the process-wide configuration (convenience for cmd/ tools).
// Engine code should prefer an explicit *Config obtained via Load, so it
// stays testable without touching global state.
var global *Config

// Init loads configuration from path (embedded defaults if empty) into the
// package-global instance. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("mpmconfig: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("mpmconfig: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from the loaded config.
func (c *Config) computeDerived() {
	if c.Grid.Dx <= 0 {
		c.Grid.Dx = 1
	}
	c.Derived.Dx32 = float32(c.Grid.Dx)
	c.Derived.InvDx = float32(1.0 / c.Grid.Dx)
	bx := 1 << uint(c.Grid.BlockBitsX)
	by := 1 << uint(c.Grid.BlockBitsY)
	bz := 1 << uint(c.Grid.BlockBitsZ)
	c.Derived.BlockDims = [3]int{bx, by, bz}
	c.Derived.BlockCells = bx * by * bz
}
