package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.World.Listen == "" || c.World.TelnetAddr == "" {
		t.Error("default addresses empty")
	}
	if c.World.StepBudget <= 0 {
		t.Error("default step budget not positive")
	}
	if c.Checkpoint.Path == "" || c.Checkpoint.Interval == "" || c.Checkpoint.Keep <= 0 {
		t.Error("default checkpoint settings incomplete")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	toml := `
[world]
name = "testworld"
listen = ":9900"
telnet-addr = ":9901"
step-budget = 250

[checkpoint]
path = "/tmp/test-warren.db"
interval = "5s"
keep = 3
`
	if err := os.WriteFile(filepath.Join(dir, "warren.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.World.Name != "testworld" || c.World.Listen != ":9900" || c.World.StepBudget != 250 {
		t.Errorf("world section = %+v", c.World)
	}
	if c.Checkpoint.Keep != 3 || c.Checkpoint.Interval != "5s" {
		t.Errorf("checkpoint section = %+v", c.Checkpoint)
	}
	if c.Dir == "" {
		t.Error("Dir not set")
	}
}

func TestLoadPartialAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "warren.toml"), []byte("[world]\nname = \"min\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.World.Name != "min" {
		t.Errorf("name = %q", c.World.Name)
	}
	if c.World.StepBudget <= 0 || c.Checkpoint.Keep <= 0 {
		t.Error("defaults not applied over partial file")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "warren.toml"), []byte("[world]\nname = \"up\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if c.World.Name != "up" {
		t.Errorf("name = %q, want up", c.World.Name)
	}
}

func TestFindAndLoadFallsBackToDefaults(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.World.StepBudget <= 0 {
		t.Error("fallback defaults missing")
	}
}
