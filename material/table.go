package material

import (
	"github.com/pthm-cable/mlsmpm/mpmconfig"
	"github.com/pthm-cable/mlsmpm/particle"
)

// Table is the vtable-free dispatch table keyed by particle.MaterialTag
// (spec §7 redesign), built once from a loaded mpmconfig.Config so the
// engine's hot loop indexes into a fixed array instead of doing an
// interface-method call through a per-particle pointer.
type Table struct {
	byTag [9]Model
}

// BuildTable constructs a dispatch table from config (spec §6's
// materials parameter blocks).
func BuildTable(c *mpmconfig.Config) *Table {
	t := &Table{}
	t.byTag[particle.TagElastic] = NewElastic(c.Materials.Elastic)
	t.byTag[particle.TagJelly] = NewJelly(c.Materials.Jelly)
	t.byTag[particle.TagLinear] = NewLinear(c.Materials.Linear)
	t.byTag[particle.TagSnow] = NewSnow(c.Materials.Snow)
	t.byTag[particle.TagSand] = NewSand(c.Materials.Sand)
	t.byTag[particle.TagVonMises] = NewVonMises(c.Materials.VonMises)
	t.byTag[particle.TagVisco] = NewVisco(c.Materials.Visco)
	t.byTag[particle.TagWater] = NewWater(c.Materials.Water)
	t.byTag[particle.TagNonlocal] = NewNonlocal(c.Materials.Nonlocal)
	return t
}

// For returns the Model for a particle's material tag.
func (t *Table) For(tag particle.MaterialTag) Model {
	return t.byTag[tag]
}
