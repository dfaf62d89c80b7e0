// Package scenario holds named round fixtures: starting balances, a policy and
// optionally the outcome they are expected to produce.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"cashflow_sim/pkg/core/round"
)

// Expectation is what a scenario asserts about its first round.
type Expectation struct {
	Amounts map[string]float64  `json:"amounts,omitempty" yaml:"amounts,omitempty"` // flow letter -> amount
	Absent  []string            `json:"absent,omitempty" yaml:"absent,omitempty"`   // flow letters that must not appear
	End     *round.BalanceState `json:"end,omitempty" yaml:"end,omitempty"`
}

// Scenario is one fixture.
type Scenario struct {
	Name        string
	Description string
	Balances    round.BalanceState
	Params      round.PolicyParams
	Rounds      int // 0 and 1 both mean a single round
	Expect      *Expectation
}

// =============================================================================
// FILE FORMAT
// =============================================================================

type scenarioDoc struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Balances    round.BalanceState `json:"balances" yaml:"balances"`
	Params      round.PolicyParams `json:"params" yaml:"params"`
	Rounds      int                `json:"rounds" yaml:"rounds"`
	Expect      *Expectation       `json:"expect" yaml:"expect"`
}

type fileDoc struct {
	Scenarios []scenarioDoc `json:"scenarios" yaml:"scenarios"`
}

func (d scenarioDoc) scenario() (Scenario, error) {
	if d.Name == "" {
		return Scenario{}, fmt.Errorf("scenario without a name")
	}
	if d.Rounds < 0 {
		return Scenario{}, fmt.Errorf("scenario %q: rounds must not be negative", d.Name)
	}
	s := Scenario{
		Name:        d.Name,
		Description: d.Description,
		Balances:    d.Balances,
		Params:      d.Params,
		Rounds:      d.Rounds,
		Expect:      d.Expect,
	}
	if e := s.Expect; e != nil {
		for code := range e.Amounts {
			if _, err := round.ParseFlowCode(code); err != nil {
				return Scenario{}, fmt.Errorf("scenario %q: %w", d.Name, err)
			}
		}
		for _, code := range e.Absent {
			if _, err := round.ParseFlowCode(code); err != nil {
				return Scenario{}, fmt.Errorf("scenario %q: %w", d.Name, err)
			}
		}
	}
	return s, nil
}

// LoadFile reads scenarios from a .yaml/.yml, .hjson or .json file.
// JSON is decoded leniently.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	var doc fileDoc
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".hjson":
		err = decodeHJSON(data, &doc)
	case ".json":
		err = DecodeLenient(string(data), &doc)
	default:
		return nil, fmt.Errorf("unsupported scenario file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	out := make([]Scenario, 0, len(doc.Scenarios))
	for _, d := range doc.Scenarios {
		s, err := d.scenario()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Find returns the scenario with the given name.
func Find(list []Scenario, name string) (Scenario, bool) {
	for _, s := range list {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
