package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points the config root at a throwaway directory so tests
// never touch the real profile store.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", root)
	return root
}

func TestLoadMerged_IgnoreConfig(t *testing.T) {
	isolate(t)

	cfg, src, err := LoadMerged(Options{IgnoreConfig: true, Output: "/tmp/out", Height: 800})
	if err != nil {
		t.Fatalf("LoadMerged() error = %v", err)
	}
	if src != "(ignored config)" {
		t.Errorf("source = %q, want the ignored marker", src)
	}
	if cfg.Output != "/tmp/out" {
		t.Errorf("Output = %q, want /tmp/out", cfg.Output)
	}
	if cfg.Height != 800 {
		t.Errorf("Height = %d, want 800", cfg.Height)
	}
}

func TestLoadMerged_NoActiveConfig(t *testing.T) {
	isolate(t)

	cfg, src, err := LoadMerged(Options{})
	if err != nil {
		t.Fatalf("LoadMerged() error = %v", err)
	}
	if !strings.Contains(src, "config init") {
		t.Errorf("source %q should hint at config init", src)
	}
	if cfg.Output != "." {
		t.Errorf("Output = %q, want default .", cfg.Output)
	}
}

func TestLoadMerged_ActiveConfigAndOverrides(t *testing.T) {
	isolate(t)

	stored := DefaultConfig()
	stored.Output = "/library"
	stored.Height = 1200
	stored.DefaultURL = "http://mangapark.me/manga/fairy-tail"
	if err := ensureDirs(); err != nil {
		t.Fatal(err)
	}
	if err := SaveYAML(stored, filepath.Join(ConfigsDir(), "main.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := SwitchConfig("main"); err != nil {
		t.Fatal(err)
	}

	cfg, src, err := LoadMerged(Options{Height: 600, ContinueOnError: true})
	if err != nil {
		t.Fatalf("LoadMerged() error = %v", err)
	}
	if !strings.HasSuffix(src, filepath.Join("configs", "main.yaml")) {
		t.Errorf("source = %q, want the active profile path", src)
	}

	// Flags override stored values; unset flags keep them.
	if cfg.Height != 600 {
		t.Errorf("Height = %d, want the flag value 600", cfg.Height)
	}
	if !cfg.ContinueOnError {
		t.Error("ContinueOnError flag not merged")
	}
	if cfg.Output != "/library" {
		t.Errorf("Output = %q, want the stored /library", cfg.Output)
	}
	if cfg.DefaultURL != "http://mangapark.me/manga/fairy-tail" {
		t.Errorf("DefaultURL = %q, want the stored value", cfg.DefaultURL)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	c := &Config{Output: "", Height: -5}
	normalizeDefaults(c)
	if c.Output != "." {
		t.Errorf("Output = %q, want .", c.Output)
	}
	if c.Height != 0 {
		t.Errorf("Height = %d, want 0", c.Height)
	}
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	in := &Config{
		Output:          "books",
		Height:          900,
		ContinueOnError: true,
		DefaultRange:    "18,20.5",
		UserAgent:       "test-agent",
	}
	if err := SaveYAML(in, path); err != nil {
		t.Fatalf("SaveYAML() error = %v", err)
	}

	out, err := loadYAML(path)
	if err != nil {
		t.Fatalf("loadYAML() error = %v", err)
	}
	if *out != *in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestCurrentLabel_NoConfig(t *testing.T) {
	isolate(t)

	if _, err := CurrentLabel(); !errors.Is(err, ErrNoConfig) {
		t.Errorf("CurrentLabel() error = %v, want ErrNoConfig", err)
	}
}

func TestSwitchConfig(t *testing.T) {
	isolate(t)

	if err := SwitchConfig("nope"); err == nil {
		t.Error("switching to a missing profile must fail")
	}
	if err := SwitchConfig("  "); err == nil {
		t.Error("blank label must fail")
	}

	if err := ensureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{"work", "home"} {
		if err := SaveYAML(DefaultConfig(), filepath.Join(ConfigsDir(), label+".yaml")); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(ConfigsDir(), "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := SwitchConfig("home"); err != nil {
		t.Fatalf("SwitchConfig() error = %v", err)
	}
	label, err := CurrentLabel()
	if err != nil {
		t.Fatalf("CurrentLabel() error = %v", err)
	}
	if label != "home" {
		t.Errorf("current label = %q, want home", label)
	}

	infos, err := ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("ListConfigs() = %d entries, want 2 (non-yaml files skipped)", len(infos))
	}
	// Sorted by label, with the active one flagged.
	if infos[0].Label != "home" || !infos[0].Active {
		t.Errorf("infos[0] = %+v, want active home", infos[0])
	}
	if infos[1].Label != "work" || infos[1].Active {
		t.Errorf("infos[1] = %+v, want inactive work", infos[1])
	}
}
