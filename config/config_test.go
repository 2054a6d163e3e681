package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Tubbz-alt/sbmlsolver"
)

func TestLoadDefaultsUnsetEnvReturnsDefaults(t *testing.T) {
	os.Unsetenv(configEnvVar)

	got, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	want := sbmlsolver.DefaultOptions()
	if got != want {
		t.Fatalf("LoadDefaults() = %+v, want unchanged defaults %+v", got, want)
	}
}

func TestLoadDefaultsOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	toml := `
[tolerances]
abs = 1e-9
rel = 1e-7

[solver]
max_bdf_order = 3
max_steps = 500
init_step = 0.01

[events]
follow = false
`
	if err := os.WriteFile(filepath.Join(dir, "driver.toml"), []byte(toml), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	os.Setenv(configEnvVar, dir)
	defer os.Unsetenv(configEnvVar)

	opts, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	if opts.AbsTol != 1e-9 {
		t.Errorf("AbsTol = %v, want 1e-9", opts.AbsTol)
	}
	if opts.RelTol != 1e-7 {
		t.Errorf("RelTol = %v, want 1e-7", opts.RelTol)
	}
	if opts.MaxBDFOrder != 3 {
		t.Errorf("MaxBDFOrder = %v, want 3", opts.MaxBDFOrder)
	}
	if opts.MaxSteps != 500 {
		t.Errorf("MaxSteps = %v, want 500", opts.MaxSteps)
	}
	if opts.InitStep != 0.01 {
		t.Errorf("InitStep = %v, want 0.01", opts.InitStep)
	}
	if opts.FollowEvents {
		t.Error("FollowEvents = true, want false")
	}
}

func TestLoadDefaultsMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	os.Setenv(configEnvVar, dir)
	defer os.Unsetenv(configEnvVar)

	if _, err := LoadDefaults(); err == nil {
		t.Fatal("LoadDefaults with no driver.toml present should fail")
	}
}
