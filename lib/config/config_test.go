// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopfloor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
listen: "tcp://127.0.0.1:5555"
sinks:
  - "tcp://127.0.0.1:5556"
  - "tcp://127.0.0.1:5557"
machines:
  lathe_1:
    driver: lathe
    fail_hard: true
    params:
      address: "192.168.7.50:7000"
  mill_1:
    driver: haas
    params:
      port: "/dev/ttyUSB0"
metrics_listen: ":9090"
`

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Listen != "tcp://127.0.0.1:5555" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if len(cfg.Sinks) != 2 {
		t.Errorf("Sinks = %v", cfg.Sinks)
	}
	if cfg.MetricsListen != ":9090" {
		t.Errorf("MetricsListen = %q", cfg.MetricsListen)
	}

	lathe := cfg.Machines["lathe_1"]
	if lathe.Driver != "lathe" || !lathe.FailHard {
		t.Errorf("lathe_1 = %+v", lathe)
	}
	if lathe.Params["address"] != "192.168.7.50:7000" {
		t.Errorf("lathe_1 params = %v", lathe.Params)
	}
	mill := cfg.Machines["mill_1"]
	if mill.Driver != "haas" || mill.FailHard {
		t.Errorf("mill_1 = %+v", mill)
	}
}

func TestLoadFileDefaultsListen(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
sinks: ["tcp://127.0.0.1:5556"]
machines:
  lathe_1:
    driver: lathe
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Listen != "tcp://127.0.0.1:0" {
		t.Errorf("Listen = %q, want ephemeral default", cfg.Listen)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile succeeded for missing file")
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv("SHOPFLOOR_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without SHOPFLOOR_CONFIG")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SHOPFLOOR_CONFIG", writeConfig(t, validConfig))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Machines) != 2 {
		t.Errorf("Machines = %v", cfg.Machines)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &Config{
		Machines: map[string]MachineConfig{
			"lathe_1": {},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed an empty config")
	}
	for _, want := range []string{
		"listen endpoint is required",
		"at least one sink endpoint is required",
		`machine "lathe_1": driver is required`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestMachineConfigsDeterministicOrder(t *testing.T) {
	cfg := &Config{Machines: map[string]MachineConfig{
		"mill_1":  {Driver: "haas"},
		"lathe_1": {Driver: "lathe", FailHard: true},
		"mill_2":  {Driver: "opcuamill"},
	}}

	configs := cfg.MachineConfigs()
	var names []string
	for _, c := range configs {
		names = append(names, c.Name)
	}
	want := []string{"lathe_1", "mill_1", "mill_2"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order %v, want %v", names, want)
		}
	}
	if !configs[0].FailHard || configs[0].Driver != "lathe" {
		t.Errorf("lathe_1 config = %+v", configs[0])
	}
}
