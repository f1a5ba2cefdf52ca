package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a step scenario for one actor instance.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs is the directory of CUE machine descriptions.
	// Relative paths are resolved against the scenario file location.
	Specs string `yaml:"specs"`

	// Actor names the machine under test.
	Actor string `yaml:"actor"`

	// Instance is an optional fixed instance ID. Required to resume from
	// a stored checkpoint.
	Instance string `yaml:"instance,omitempty"`

	// MaxOps overrides the scheduler's per-step op budget.
	MaxOps int `yaml:"max_ops,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step sets the environment and invokes the scheduler once.
type Step struct {
	// Tokens sets available tokens (input) or free slots (output) per port.
	Tokens map[string]int `yaml:"tokens,omitempty"`

	// Predicates sets predicate values by name. Unset predicates are false.
	Predicates map[string]bool `yaml:"predicates,omitempty"`

	// Fail lists transitions whose actions return an error in this step.
	Fail []string `yaml:"fail,omitempty"`

	// Expect is compared with the observed outcome. Nil skips the check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Outcome is progress, blocked, terminal or error.
	Outcome string `yaml:"outcome"`

	// Fired lists transition names in firing order. Always compared;
	// omitted means nothing fired.
	Fired []string `yaml:"fired,omitempty"`

	// PC is the expected program counter after the step, if set.
	PC *int `yaml:"pc,omitempty"`

	// Blocked is compared when set. Order matches test order.
	Blocked []PortBlock `yaml:"blocked,omitempty"`

	// Error is a substring of the expected error (outcome "error" only).
	Error string `yaml:"error,omitempty"`
}

// Expected outcome values.
const (
	OutcomeProgress = "progress"
	OutcomeBlocked  = "blocked"
	OutcomeTerminal = "terminal"
	OutcomeError    = "error"
)

var validOutcomes = map[string]bool{
	OutcomeProgress: true,
	OutcomeBlocked:  true,
	OutcomeTerminal: true,
	OutcomeError:    true,
}

// LoadScenario reads and parses a scenario YAML file, resolving the specs
// directory relative to the file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the specs directory relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Specs != "" && !filepath.IsAbs(scenario.Specs) && basePath != "" {
		scenario.Specs = filepath.Join(basePath, scenario.Specs)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Specs == "" {
		return fmt.Errorf("specs directory is required")
	}
	if s.Actor == "" {
		return fmt.Errorf("actor is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.MaxOps < 0 {
		return fmt.Errorf("max_ops must be non-negative, got %d", s.MaxOps)
	}

	info, err := os.Stat(s.Specs)
	if err != nil {
		return fmt.Errorf("specs directory not found: %s", s.Specs)
	}
	if !info.IsDir() {
		return fmt.Errorf("specs is not a directory: %s", s.Specs)
	}

	for i, step := range s.Steps {
		for port, n := range step.Tokens {
			if n < 0 {
				return fmt.Errorf("steps[%d].tokens.%s: must be non-negative, got %d", i, port, n)
			}
		}
		if step.Expect == nil {
			continue
		}
		if !validOutcomes[step.Expect.Outcome] {
			return fmt.Errorf("steps[%d].expect: unknown outcome %q", i, step.Expect.Outcome)
		}
		if step.Expect.Error != "" && step.Expect.Outcome != OutcomeError {
			return fmt.Errorf("steps[%d].expect: error is only valid with outcome %q", i, OutcomeError)
		}
	}

	return nil
}
