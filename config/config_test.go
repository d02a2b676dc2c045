package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PollQuantum() != 300*time.Millisecond {
		t.Errorf("PollQuantum() = %s, want 300ms", cfg.PollQuantum())
	}
	if cfg.ListenAddr != defaultListen {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListen)
	}
	if cfg.Override() != nil {
		t.Error("Override() should be nil by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.toml", `
input = "Keystation"
output = "INTEGRA-7"
channel = 3
poll_quantum_ms = 100
log_level = "debug"

[ui]
palette = "~/palettes/dawn.gpl"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != "Keystation" || cfg.Output != "INTEGRA-7" {
		t.Errorf("ports = %q/%q", cfg.Input, cfg.Output)
	}
	if ov := cfg.Override(); ov == nil || *ov != 3 {
		t.Errorf("Override() = %v, want 3", ov)
	}
	if cfg.PollQuantum() != 100*time.Millisecond {
		t.Errorf("PollQuantum() = %s", cfg.PollQuantum())
	}
	if cfg.UI.Palette != "~/palettes/dawn.gpl" {
		t.Errorf("palette = %q", cfg.UI.Palette)
	}
	// untouched keys keep defaults
	if cfg.UI.NoticeLines != 12 {
		t.Errorf("NoticeLines = %d, want 12", cfg.UI.NoticeLines)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.toml", `input = "from-file"`)
	t.Setenv("RECPLAY_INPUT", "from-env")
	t.Setenv("RECPLAY_CHANNEL", "off")
	t.Setenv("RECPLAY_DEBUG", "true")
	t.Setenv("RECPLAY_POLL_QUANTUM_MS", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != "from-env" {
		t.Errorf("Input = %q, want from-env", cfg.Input)
	}
	if cfg.Channel != nil {
		t.Errorf("Channel = %d, want none", *cfg.Channel)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.PollQuantumMS != 50 {
		t.Errorf("PollQuantumMS = %d, want 50", cfg.PollQuantumMS)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"channel out of range", "channel = 16", nil},
		{"zero quantum", "poll_quantum_ms = 0", nil},
		{"bad log level", `log_level = "loud"`, nil},
		{"bad env channel", "", map[string]string{"RECPLAY_CHANNEL": "seventeen"}},
		{"bad env debug", "", map[string]string{"RECPLAY_DEBUG": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, "config.toml", tt.content))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", "input = "))
	if err == nil {
		t.Error("expected a parse error")
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    int // -1 for none
		wantErr bool
	}{
		{"0", 0, false},
		{"15", 15, false},
		{" 9 ", 9, false},
		{"off", -1, false},
		{"None", -1, false},
		{"-1", -1, false},
		{"16", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChannel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseChannel(%q) want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChannel(%q): %v", tt.in, err)
			continue
		}
		if tt.want < 0 && got != nil {
			t.Errorf("ParseChannel(%q) = %d, want none", tt.in, *got)
		}
		if tt.want >= 0 && (got == nil || *got != tt.want) {
			t.Errorf("ParseChannel(%q) = %v, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Input = "Keys"
	ch := 5
	cfg.Channel = &ch

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Input != "Keys" || got.Channel == nil || *got.Channel != 5 {
		t.Errorf("loaded %+v", got)
	}
}

func TestDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "go-recplay") {
		t.Errorf("Dir() = %q", dir)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "RECPLAY_TEST_DOTENV_OUTPUT"
	path := writeFile(t, ".env", key+"=Synth\n")
	t.Cleanup(func() { os.Unsetenv(key) })

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(key); got != "Synth" {
		t.Errorf("%s = %q, want Synth", key, got)
	}
}
