package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dupehound/dupehound/internal/errors"
)

// Thresholds is the second versioned analysis structure: channel weights,
// category cut lines, contribution caps, and retrieval limits. Version is
// recorded on every AnalysisRun as config_version so a weight change never
// silently reinterprets historical results.
type Thresholds struct {
	Version string `yaml:"version"`

	Weights    Weights        `yaml:"weights"`
	Caps       Caps           `yaml:"caps"`
	Categories CategoryRules  `yaml:"categories"`
	Candidates CandidateRules `yaml:"candidates"`
	Evidence   EvidenceRules  `yaml:"evidence"`
	Grouping   GroupingRules  `yaml:"grouping"`
	Publish    PublishRules   `yaml:"publish"`
}

// Weights are the per-signal multipliers. The five production weights feed
// prodScore; tests/docs weights feed the capped side contributions.
type Weights struct {
	Minhash float64 `yaml:"minhash"`
	Paths   float64 `yaml:"paths"`
	Exports float64 `yaml:"exports"`
	Symbols float64 `yaml:"symbols"`
	Imports float64 `yaml:"imports"`
	Tests   float64 `yaml:"tests"`
	Docs    float64 `yaml:"docs"`
}

// Caps bound the test/doc contributions so production evidence always
// dominates the final score no matter how similar the side channels are.
type Caps struct {
	Tests float64 `yaml:"tests"`
	Docs  float64 `yaml:"docs"`
}

// CategoryRules are the decision-table cut lines, evaluated in fixed order:
// SAME_CHANGE, SAME_FEATURE, COMPETING_IMPLEMENTATION, RELATED, NOT_RELATED.
type CategoryRules struct {
	SameChangeMinhash   float64 `yaml:"same_change_minhash"`
	SameChangeFiles     float64 `yaml:"same_change_files"`
	SameFeatureProd     float64 `yaml:"same_feature_prod"`
	SupportingSignalMin float64 `yaml:"supporting_signal_min"`
	CompetingTestsMin   float64 `yaml:"competing_tests_min"`
	CompetingProdMax    float64 `yaml:"competing_prod_max"`
	RelatedFinalMin     float64 `yaml:"related_final_min"`
}

// CandidateRules bound retrieval so the candidate set never grows past what
// the scorer can afford.
type CandidateRules struct {
	MaxTotal       int `yaml:"max_total"`
	MaxPerStrategy int `yaml:"max_per_strategy"`
}

type EvidenceRules struct {
	MaxItems int `yaml:"max_items"` // per-field cap on overlap lists
}

type GroupingRules struct {
	MinScore float64 `yaml:"min_score"` // edge score floor for duplicate-set membership
}

type PublishRules struct {
	SummaryEnabled bool `yaml:"summary_enabled"`
	MaxCandidates  int  `yaml:"max_candidates"` // candidates shown in the posted summary
}

// DefaultThresholds returns the built-in scoring configuration.
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		Version: "builtin-1",
		Weights: Weights{
			Minhash: 0.35,
			Paths:   0.25,
			Exports: 0.15,
			Symbols: 0.15,
			Imports: 0.10,
			Tests:   0.30,
			Docs:    0.20,
		},
		Caps: Caps{
			Tests: 0.15,
			Docs:  0.10,
		},
		Categories: CategoryRules{
			SameChangeMinhash:   0.90,
			SameChangeFiles:     0.50,
			SameFeatureProd:     0.55,
			SupportingSignalMin: 0.40,
			CompetingTestsMin:   0.70,
			CompetingProdMax:    0.25,
			RelatedFinalMin:     0.30,
		},
		Candidates: CandidateRules{
			MaxTotal:       200,
			MaxPerStrategy: 100,
		},
		Evidence: EvidenceRules{
			MaxItems: 10,
		},
		Grouping: GroupingRules{
			MinScore: 0.55,
		},
		Publish: PublishRules{
			SummaryEnabled: true,
			MaxCandidates:  5,
		},
	}
}

// LoadThresholds reads and validates a thresholds file (strict decode).
func LoadThresholds(path string) (*Thresholds, error) {
	if path == "" {
		return DefaultThresholds(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical,
			fmt.Sprintf("read thresholds file %s", path))
	}

	t := &Thresholds{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical,
			fmt.Sprintf("parse thresholds file %s", path))
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate fails fast on the first invalid field. The engine must never
// score with partial or default-guessed thresholds.
func (t *Thresholds) Validate() error {
	if t.Version == "" {
		return errors.Configf("thresholds: version is required")
	}

	weights := map[string]float64{
		"weights.minhash": t.Weights.Minhash,
		"weights.paths":   t.Weights.Paths,
		"weights.exports": t.Weights.Exports,
		"weights.symbols": t.Weights.Symbols,
		"weights.imports": t.Weights.Imports,
		"weights.tests":   t.Weights.Tests,
		"weights.docs":    t.Weights.Docs,
	}
	for name, w := range weights {
		if w < 0 || w > 1 {
			return errors.Configf("thresholds: %s must be in [0,1], got %v", name, w)
		}
	}

	if t.Caps.Tests < 0 || t.Caps.Tests > 1 {
		return errors.Configf("thresholds: caps.tests must be in [0,1], got %v", t.Caps.Tests)
	}
	if t.Caps.Docs < 0 || t.Caps.Docs > 1 {
		return errors.Configf("thresholds: caps.docs must be in [0,1], got %v", t.Caps.Docs)
	}

	cuts := map[string]float64{
		"categories.same_change_minhash":   t.Categories.SameChangeMinhash,
		"categories.same_change_files":     t.Categories.SameChangeFiles,
		"categories.same_feature_prod":     t.Categories.SameFeatureProd,
		"categories.supporting_signal_min": t.Categories.SupportingSignalMin,
		"categories.competing_tests_min":   t.Categories.CompetingTestsMin,
		"categories.competing_prod_max":    t.Categories.CompetingProdMax,
		"categories.related_final_min":     t.Categories.RelatedFinalMin,
	}
	for name, v := range cuts {
		if v < 0 || v > 1 {
			return errors.Configf("thresholds: %s must be in [0,1], got %v", name, v)
		}
	}

	if t.Candidates.MaxTotal <= 0 {
		return errors.Configf("thresholds: candidates.max_total must be positive, got %d", t.Candidates.MaxTotal)
	}
	if t.Candidates.MaxPerStrategy <= 0 {
		return errors.Configf("thresholds: candidates.max_per_strategy must be positive, got %d", t.Candidates.MaxPerStrategy)
	}
	if t.Evidence.MaxItems <= 0 {
		return errors.Configf("thresholds: evidence.max_items must be positive, got %d", t.Evidence.MaxItems)
	}
	if t.Grouping.MinScore < 0 || t.Grouping.MinScore > 1 {
		return errors.Configf("thresholds: grouping.min_score must be in [0,1], got %v", t.Grouping.MinScore)
	}
	if t.Publish.MaxCandidates <= 0 {
		return errors.Configf("thresholds: publish.max_candidates must be positive, got %d", t.Publish.MaxCandidates)
	}

	return nil
}
