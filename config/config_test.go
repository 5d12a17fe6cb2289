package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unset clears key for the test and restores it afterwards, so dotenv files
// loaded by the test can set it.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(EnvPrefix+k, "")
		os.Unsetenv(EnvPrefix + k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unset(t, "ADDR", "RELAY_URL", "SCORE_LIMIT", "CODEC")
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8080" || c.ScoreLimit != 5 || c.Codec != "json" || !c.RelayMode() {
		t.Fatalf("defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadDotenvAndEnvironment(t *testing.T) {
	unset(t, "NAME", "SCORE_LIMIT", "RELAY_URL", "HOLD_WINDOW", "STRICT_SNAPSHOTS")
	path := filepath.Join(t.TempDir(), "peer.env")
	body := "PEERBALL_NAME=alice\nPEERBALL_SCORE_LIMIT=3\nPEERBALL_RELAY_URL=ws://relay:8080/ws\nPEERBALL_HOLD_WINDOW=250ms\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	// the real environment wins over the file
	t.Setenv("PEERBALL_SCORE_LIMIT", "9")
	t.Setenv("PEERBALL_STRICT_SNAPSHOTS", "true")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Name != "alice" || c.ScoreLimit != 9 || !c.Strict || c.HoldWindow != 250*time.Millisecond {
		t.Fatalf("loaded = %+v", c)
	}
	if c.RelayMode() {
		t.Fatalf("relay url set, want participant mode")
	}
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("PEERBALL_SYNC_HZ", "fast")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load = %v, want ErrInvalid", err)
	}
}

func TestFlagsOverride(t *testing.T) {
	c := Default()
	c.Name = "from-env"
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	c.BindFlags(set)
	if err := set.Parse([]string{"-name", "bob", "-codec", "msgpack", "-sync-hz", "10"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Name != "bob" || c.Codec != "msgpack" || c.SyncHz != 10 || c.ScoreLimit != 5 {
		t.Fatalf("after flags = %+v", c)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero rate", func(c *Config) { c.ForceHz = 0 }},
		{"score limit", func(c *Config) { c.ScoreLimit = 0 }},
		{"drop prob", func(c *Config) { c.SimDropProb = 2 }},
		{"delay range", func(c *Config) { c.SimDelayMinMs, c.SimDelayMaxMs = 50, 10 }},
		{"hold window", func(c *Config) { c.HoldWindow = 0 }},
		{"codec", func(c *Config) { c.Codec = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mod(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
}
