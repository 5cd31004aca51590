package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholdsValid(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
}

func TestThresholdsValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"missing version", func(th *Thresholds) { th.Version = "" }},
		{"negative weight", func(th *Thresholds) { th.Weights.Minhash = -0.1 }},
		{"weight above one", func(th *Thresholds) { th.Weights.Tests = 1.5 }},
		{"negative cap", func(th *Thresholds) { th.Caps.Tests = -0.01 }},
		{"category above one", func(th *Thresholds) { th.Categories.SameChangeMinhash = 1.1 }},
		{"zero max total", func(th *Thresholds) { th.Candidates.MaxTotal = 0 }},
		{"zero per strategy", func(th *Thresholds) { th.Candidates.MaxPerStrategy = 0 }},
		{"zero evidence items", func(th *Thresholds) { th.Evidence.MaxItems = 0 }},
		{"grouping floor above one", func(th *Thresholds) { th.Grouping.MinScore = 2 }},
		{"zero summary candidates", func(th *Thresholds) { th.Publish.MaxCandidates = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(th)
			assert.Error(t, th.Validate())
		})
	}
}

func TestLoadThresholdsEmptyPathUsesDefaults(t *testing.T) {
	th, err := LoadThresholds("")
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds(), th)
}

func TestLoadThresholdsRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1\nweigths:\n  minhash: 0.5\n"), 0644))

	_, err := LoadThresholds(path)
	assert.Error(t, err, "a typo must be rejected, not silently ignored")
}

func TestLoadThresholdsMissingFile(t *testing.T) {
	_, err := LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultRulesValid(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())
}

func TestRulesValidateRejections(t *testing.T) {
	rules := DefaultRules()
	rules.Version = ""
	assert.Error(t, rules.Validate())
}

func TestLoadRulesStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1\ntets:\n  - \"**/*_test.go\"\n"), 0644))

	_, err := LoadRules(path)
	assert.Error(t, err)
}
