package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mapLookup(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.MinContourArea != 800 {
		t.Errorf("MinContourArea: got %v, want 800", cfg.MinContourArea)
	}
	if cfg.ReferenceWidthCm != 21.0 {
		t.Errorf("ReferenceWidthCm: got %v, want 21.0", cfg.ReferenceWidthCm)
	}
	if cfg.MatchRadius != 50 {
		t.Errorf("MatchRadius: got %v, want 50", cfg.MatchRadius)
	}
	if cfg.KernelSize != 5 || cfg.BlurKernel != 5 {
		t.Errorf("Kernels: got %d/%d, want 5/5", cfg.KernelSize, cfg.BlurKernel)
	}
	if cfg.Threshold != 127 || cfg.MinCardArea != 10000 || cfg.EpsilonRatio != 0.02 {
		t.Errorf("Calibration defaults are wrong: %+v", cfg.CalibratorConfig())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if idx, ok := cfg.CameraIndex(); !ok || idx != 0 {
		t.Errorf("Default source should be camera 0")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	err := cfg.fromEnv(mapLookup(map[string]string{
		"REFDIST_MIN_CONTOUR_AREA":   "1200",
		"REFDIST_MATCH_RADIUS":       " 35.5 ",
		"REFDIST_REFERENCE_WIDTH_CM": "29.7",
		"REFDIST_SOURCE":             "video.mp4",
		"REFDIST_SHOW_WINDOW":        "false",
		"REFDIST_REDIS_TTL":          "30s",
		"REFDIST_LOG_LEVEL":          "DEBUG",
		"REFDIST_KERNEL_SIZE":        "",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinContourArea != 1200 || cfg.MatchRadius != 35.5 || cfg.ReferenceWidthCm != 29.7 {
		t.Errorf("Numbers were not applied: %+v", cfg)
	}
	if cfg.Source != "video.mp4" || cfg.ShowWindow {
		t.Errorf("Source settings were not applied: %+v", cfg)
	}
	if _, ok := cfg.CameraIndex(); ok {
		t.Error("File source should not be a camera index")
	}
	if cfg.RedisTTL != 30*time.Second {
		t.Errorf("RedisTTL: got %v, want 30s", cfg.RedisTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %s, want debug", cfg.LogLevel)
	}
	if cfg.KernelSize != 5 {
		t.Errorf("Empty value should keep default, got %d", cfg.KernelSize)
	}
}

func TestFromEnvParseError(t *testing.T) {
	cfg := Default()
	err := cfg.fromEnv(mapLookup(map[string]string{
		"REFDIST_MATCH_RADIUS": "fifty",
	}))
	if err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "even kernel", modify: func(c *Config) { c.KernelSize = 4 }},
		{name: "even blur", modify: func(c *Config) { c.BlurKernel = 6 }},
		{name: "zero width", modify: func(c *Config) { c.ReferenceWidthCm = 0 }},
		{name: "negative radius", modify: func(c *Config) { c.MatchRadius = -1 }},
		{name: "threshold overflow", modify: func(c *Config) { c.Threshold = 300 }},
		{name: "epsilon ratio", modify: func(c *Config) { c.EpsilonRatio = 1.5 }},
		{name: "log level", modify: func(c *Config) { c.LogLevel = "verbose" }},
		{name: "no source", modify: func(c *Config) { c.Source = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("REFDIST_MIN_CARD_AREA=5000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("REFDIST_MIN_CARD_AREA") })

	cfg, err := Load(file, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinCardArea != 5000 {
		t.Errorf("MinCardArea: got %v, want 5000", cfg.MinCardArea)
	}
}
