package inspect

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/ghodss/yaml"
)

// ruleFile mirrors dive's .dive-ci file:
//
//	rules:
//	  lowestEfficiency: 0.95
//	  highestWastedBytes: 20MB
//	  highestUserWastedPercent: 0.20
type ruleFile struct {
	Rules struct {
		LowestEfficiency         *float64 `json:"lowestEfficiency"`
		HighestWastedBytes       *string  `json:"highestWastedBytes"`
		HighestUserWastedPercent *float64 `json:"highestUserWastedPercent"`
	} `json:"rules"`
}

// RuleSet holds parsed efficiency thresholds. A nil RuleSet evaluates
// to no results.
type RuleSet struct {
	lowestEfficiency         *float64
	highestWastedBytes       *uint64
	highestUserWastedPercent *float64
}

// RuleResult is one threshold verdict attached to an analysis.
type RuleResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// LoadRules reads a dive-CI-style YAML rules file. An empty path
// returns a nil RuleSet.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	rs := &RuleSet{
		lowestEfficiency:         file.Rules.LowestEfficiency,
		highestUserWastedPercent: file.Rules.HighestUserWastedPercent,
	}
	if file.Rules.HighestWastedBytes != nil {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(*file.Rules.HighestWastedBytes)); err != nil {
			return nil, fmt.Errorf("invalid highestWastedBytes %q: %w", *file.Rules.HighestWastedBytes, err)
		}
		limit := size.Bytes()
		rs.highestWastedBytes = &limit
	}
	return rs, nil
}

// Evaluate applies the thresholds to an analysis.
func (rs *RuleSet) Evaluate(a *Analysis) []RuleResult {
	if rs == nil {
		return nil
	}

	var results []RuleResult
	if rs.lowestEfficiency != nil {
		score := a.Efficiency / 100
		results = append(results, RuleResult{
			Name:    "lowestEfficiency",
			Passed:  score >= *rs.lowestEfficiency,
			Message: fmt.Sprintf("efficiency %.4f, threshold %.4f", score, *rs.lowestEfficiency),
		})
	}
	if rs.highestWastedBytes != nil {
		results = append(results, RuleResult{
			Name:    "highestWastedBytes",
			Passed:  a.WastedBytes <= *rs.highestWastedBytes,
			Message: fmt.Sprintf("wasted %d bytes, threshold %d", a.WastedBytes, *rs.highestWastedBytes),
		})
	}
	if rs.highestUserWastedPercent != nil {
		ratio := a.WastedPercent / 100
		results = append(results, RuleResult{
			Name:    "highestUserWastedPercent",
			Passed:  ratio <= *rs.highestUserWastedPercent,
			Message: fmt.Sprintf("wasted ratio %.4f, threshold %.4f", ratio, *rs.highestUserWastedPercent),
		})
	}
	return results
}
