package mpmconfig

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Grid.Dx <= 0 {
		t.Fatalf("expected positive dx, got %v", cfg.Grid.Dx)
	}
	if cfg.Derived.BlockCells != 64 {
		t.Errorf("expected default 4x4x4 block = 64 cells, got %d", cfg.Derived.BlockCells)
	}
	if cfg.Materials.Water.Gamma != 7.0 {
		t.Errorf("expected water gamma 7.0, got %v", cfg.Materials.Water.Gamma)
	}
	if cfg.Rigid.MaxRigidBodies != 12 {
		t.Errorf("expected max_rigid_bodies 12, got %d", cfg.Rigid.MaxRigidBodies)
	}
}

func TestLoadOverridePreservesUntouchedFields(t *testing.T) {
	override := []byte(`
materials:
  water:
    gamma: 9.0
`)
	tmp := t.TempDir() + "/override.yaml"
	if err := os.WriteFile(tmp, override, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	cfg, err := Load(tmp)
	if err != nil {
		t.Fatalf("Load(%q) returned error: %v", tmp, err)
	}
	if cfg.Materials.Water.Gamma != 9.0 {
		t.Errorf("expected overridden gamma 9.0, got %v", cfg.Materials.Water.Gamma)
	}
	if cfg.Materials.Water.K != 5.0e4 {
		t.Errorf("expected untouched K to retain default 5e4, got %v", cfg.Materials.Water.K)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	global = nil
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Cfg() to panic before Init()")
		}
	}()
	Cfg()
}
