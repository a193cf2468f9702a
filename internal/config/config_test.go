package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 480 || cfg.Slippage != 0.5 || cfg.PollInterval != 30*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.OrderStore != StoreFile || !cfg.DryRun {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "trader.yaml")
	content := "rpc: https://file.example\nslippage: 1.5\norder-store: memory\npoll-interval: 5s\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRADER_SLIPPAGE", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	if err := flags.Parse([]string{"--rpc", "https://flag.example"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(file, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://flag.example" {
		t.Fatalf("rpc = %q", cfg.RPCURL)
	}
	if cfg.Slippage != 2 {
		t.Fatalf("slippage = %v", cfg.Slippage)
	}
	if cfg.OrderStore != StoreMemory || cfg.PollInterval != 5*time.Second {
		t.Fatalf("file values = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{OrderStore: StoreFile, Slippage: 0.5, DryRun: true}
	if err := base.Validate(); err != nil {
		t.Fatalf("base: %v", err)
	}

	cases := map[string]func(*Config){
		"store":    func(c *Config) { c.OrderStore = "sqlite" },
		"postgres": func(c *Config) { c.OrderStore = StorePostgres },
		"slippage": func(c *Config) { c.Slippage = 101 },
		"key":      func(c *Config) { c.DryRun = false },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
}
