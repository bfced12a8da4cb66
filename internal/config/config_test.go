// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format=text, got %q", cfg.Defaults.Format)
	}
	if cfg.Reconcile.MergeRatio != 0.8 {
		t.Errorf("expected merge_ratio=0.8, got %v", cfg.Reconcile.MergeRatio)
	}
	if cfg.Matcher.ContextChars != 20 {
		t.Errorf("expected context_chars=20, got %d", cfg.Matcher.ContextChars)
	}
	if cfg.NER.URL != "" {
		t.Errorf("expected NER disabled by default, got %q", cfg.NER.URL)
	}
	if cfg.RuleList() != nil {
		t.Errorf("expected all rules enabled, got %v", cfg.RuleList())
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
defaults:
  format: json
  labels: PS,LC
weights:
  email: 12
  employee-id: 15
reconcile:
  merge_ratio: 0.5
ner:
  url: http://ner:8001
  timeout: 3s
matcher:
  rules:
    - name: employee_id
      pattern: '\bE-\d{6}\b'
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "json" {
		t.Errorf("expected format=json, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.Port != 8080 {
		t.Errorf("expected untouched default port, got %d", cfg.Defaults.Port)
	}
	if cfg.NER.Timeout != 3*time.Second {
		t.Errorf("expected timeout=3s, got %v", cfg.NER.Timeout)
	}
	if cfg.NER.Burst != 5 {
		t.Errorf("expected default burst kept, got %d", cfg.NER.Burst)
	}
	w := cfg.RiskWeights()
	if w.Weight("email") != 12 || w.Weight("employee-id") != 15 || w.Weight("card-number") != 25 {
		t.Errorf("unexpected weights: %v", w)
	}
	if len(cfg.Matcher.Rules) != 1 || cfg.Matcher.Rules[0].Name != "employee_id" {
		t.Errorf("unexpected matcher rules: %+v", cfg.Matcher.Rules)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        ":::invalid yaml:::",
		"bad format":      "defaults:\n  format: xml\n",
		"negative weight": "weights:\n  email: -1\n",
		"ratio too large": "reconcile:\n  merge_ratio: 1.5\n",
		"rule no pattern": "matcher:\n  rules:\n    - name: x\n",
		"profile format":  "profiles:\n  p:\n    format: html\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	if cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml"); cfg == nil || cfg.Defaults.Format != "text" {
		t.Fatal("expected defaults for a missing file")
	}
	if cfg := LoadConfigOrDefault(writeConfig(t, "defaults:\n  format: xml\n")); cfg.Defaults.Format != "text" {
		t.Errorf("expected defaults for an invalid file, got %q", cfg.Defaults.Format)
	}
}

func TestApplyProfile(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyProfile("contact"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.RuleList(); len(got) != 2 || got[0] != "email" || got[1] != "mobile_phone" {
		t.Errorf("unexpected rules %v", got)
	}
	if cfg.Defaults.Labels != "PS" {
		t.Errorf("expected labels=PS, got %q", cfg.Defaults.Labels)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("empty profile format must not override, got %q", cfg.Defaults.Format)
	}

	if err := cfg.ApplyProfile("missing"); err == nil {
		t.Error("expected an error for an unknown profile")
	}
}

func TestListProfilesSorted(t *testing.T) {
	got := Default().ListProfiles()
	if len(got) != 2 || got[0] != "contact" || got[1] != "identifiers" {
		t.Errorf("unexpected profiles %v", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvNERURL, " http://localhost:9000 ")
	cfg := Default()
	ApplyEnv(cfg)
	if cfg.NER.URL != "http://localhost:9000" {
		t.Errorf("expected env URL, got %q", cfg.NER.URL)
	}
}

func TestFindConfigFile_Env(t *testing.T) {
	p := writeConfig(t, "defaults:\n  format: csv\n")
	t.Setenv(EnvConfig, p)
	if got := FindConfigFile(); got != p {
		t.Errorf("expected %q, got %q", p, got)
	}
}

func TestLoadEnv_FromDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FERRET_NER_URL=http://dotenv:8001\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv(EnvNERURL, "")
	os.Unsetenv(EnvNERURL)

	if err := LoadEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := Default()
	ApplyEnv(cfg)
	if cfg.NER.URL != "http://dotenv:8001" {
		t.Errorf("expected .env URL, got %q", cfg.NER.URL)
	}
}

func TestLoadEnv_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadEnv(); err != nil {
		t.Errorf("a missing .env must not be an error, got %v", err)
	}
}

func TestSplitList(t *testing.T) {
	if SplitList("all") != nil || SplitList(" ") != nil {
		t.Error("all and blank should yield nil")
	}
	got := SplitList("rrn, ,email")
	if len(got) != 2 || got[0] != "rrn" || got[1] != "email" {
		t.Errorf("unexpected %v", got)
	}
}
