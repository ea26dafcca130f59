// internal/scenario/definition.go
// Package scenario holds the data-defined user journeys the harness executes.
// Steps and their readiness, dispatch and assertion parameters live in YAML
// so that tuning a timeout or flipping a dispatch strategy is a data review,
// never a driver edit.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/frostpath/gauntlet/internal/config"
	"github.com/frostpath/gauntlet/internal/driver"
)

// Duration wraps time.Duration with YAML support for "5s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// TargetSpec is the YAML form of a driver.Reference: role+name, or text.
type TargetSpec struct {
	Role string `yaml:"role,omitempty"`
	Name string `yaml:"name,omitempty"`
	Text string `yaml:"text,omitempty"`
}

// ReadySpec is the YAML form of a driver.ReadinessSpec.
type ReadySpec struct {
	Predicates []string `yaml:"predicates"`
	Timeout    Duration `yaml:"timeout,omitempty"`
}

// AssertSpec is the YAML form of a driver.Assertion.
type AssertSpec struct {
	Appear     *TargetSpec `yaml:"appear,omitempty"`
	TextChange *TargetSpec `yaml:"text_change,omitempty"`
	Timeout    Duration    `yaml:"timeout,omitempty"`
}

// Step is one ordered scenario step. An interactive step carries a target
// and a dispatch strategy, and either an assertion or an explicit reason why
// the assertion is skipped; a silent skip is a validation error, because
// unverified steps must be visible in the scenario definition rather than
// buried in the driver. A step with no target and no strategy is an
// expectation step: it dispatches nothing and only asserts that an element
// appears, so its failure is attributable as "the preceding actions had no
// effect" rather than as a readiness problem.
type Step struct {
	Name             string      `yaml:"name"`
	Target           TargetSpec  `yaml:"target"`
	Ready            ReadySpec   `yaml:"ready"`
	Strategy         string      `yaml:"strategy"`
	Assert           *AssertSpec `yaml:"assert,omitempty"`
	SkipAssertReason string      `yaml:"skip_assert_reason,omitempty"`
}

// Definition is a complete data-defined scenario.
type Definition struct {
	Name       string   `yaml:"name"`
	URL        string   `yaml:"url"`
	RunTimeout Duration `yaml:"run_timeout,omitempty"`
	Steps      []Step   `yaml:"steps"`
}

// Load reads and validates a scenario definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate rejects definitions the runner cannot execute deterministically.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("scenario name must not be empty")
	}
	if d.URL == "" {
		return fmt.Errorf("scenario %q: url must not be empty", d.Name)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("scenario %q: at least one step is required", d.Name)
	}

	for i, s := range d.Steps {
		where := fmt.Sprintf("scenario %q step %d (%s)", d.Name, i, s.Name)
		if s.Name == "" {
			return fmt.Errorf("scenario %q step %d: name must not be empty", d.Name, i)
		}
		if s.ExpectOnly() {
			if s.Assert == nil || s.Assert.Appear == nil {
				return fmt.Errorf("%s: an expectation step must assert that an element appears", where)
			}
			if err := validateTarget(*s.Assert.Appear); err != nil {
				return fmt.Errorf("%s: assertion: %w", where, err)
			}
			continue
		}
		if err := validateTarget(s.Target); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if len(s.Ready.Predicates) == 0 {
			return fmt.Errorf("%s: at least one readiness predicate is required", where)
		}
		for _, p := range s.Ready.Predicates {
			if _, err := driver.ParsePredicate(p); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
		if _, err := driver.ParseStrategy(s.Strategy); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if s.Assert == nil && s.SkipAssertReason == "" {
			return fmt.Errorf("%s: step must either assert an outcome or document why the assertion is skipped", where)
		}
		if s.Assert != nil && s.SkipAssertReason != "" {
			return fmt.Errorf("%s: assert and skip_assert_reason are mutually exclusive", where)
		}
		if s.Assert != nil {
			if (s.Assert.Appear == nil) == (s.Assert.TextChange == nil) {
				return fmt.Errorf("%s: assertion needs exactly one of appear or text_change", where)
			}
			target := s.Assert.Appear
			if target == nil {
				target = s.Assert.TextChange
			}
			if err := validateTarget(*target); err != nil {
				return fmt.Errorf("%s: assertion: %w", where, err)
			}
		}
	}
	return nil
}

func validateTarget(t TargetSpec) error {
	byRole := t.Role != "" || t.Name != ""
	byText := t.Text != ""
	switch {
	case byRole && byText:
		return fmt.Errorf("target specifies both role/name and text")
	case byRole:
		if t.Role == "" {
			return fmt.Errorf("target has a name pattern but no role")
		}
		if _, err := driver.ByRole(t.Role, t.Name); err != nil {
			return err
		}
	case byText:
		// Always valid once non-empty.
	default:
		return fmt.Errorf("target must specify role/name or text")
	}
	return nil
}

// ExpectOnly reports whether the step dispatches nothing and only asserts.
func (s Step) ExpectOnly() bool {
	return s.Strategy == "" && s.Target == (TargetSpec{})
}

// Reference compiles the YAML target into a driver.Reference. Validate has
// already run, so compile errors are programming errors.
func (t TargetSpec) Reference() (driver.Reference, error) {
	if t.Text != "" {
		return driver.ByText(t.Text)
	}
	return driver.ByRole(t.Role, t.Name)
}

// readiness compiles a step's ReadySpec, filling unset timeouts from the
// driver config: the first step after navigation gets the boot bound, later
// steps the regular step bound.
func (s Step) readiness(cfg config.DriverConfig, first bool) (driver.ReadinessSpec, error) {
	spec := driver.ReadinessSpec{Timeout: time.Duration(s.Ready.Timeout)}
	if spec.Timeout <= 0 {
		if first {
			spec.Timeout = cfg.BootTimeout
		} else {
			spec.Timeout = cfg.StepTimeout
		}
	}
	for _, p := range s.Ready.Predicates {
		pred, err := driver.ParsePredicate(p)
		if err != nil {
			return driver.ReadinessSpec{}, err
		}
		spec.Predicates = append(spec.Predicates, pred)
	}
	return spec, nil
}

// assertion compiles a step's AssertSpec, or returns nil for a documented skip.
func (s Step) assertion(cfg config.DriverConfig) (*driver.Assertion, error) {
	if s.Assert == nil {
		return nil, nil
	}
	a := driver.Assertion{Timeout: time.Duration(s.Assert.Timeout)}
	if a.Timeout <= 0 {
		a.Timeout = cfg.StepTimeout
	}
	if s.Assert.Appear != nil {
		ref, err := s.Assert.Appear.Reference()
		if err != nil {
			return nil, err
		}
		a.Appear = &ref
	} else {
		ref, err := s.Assert.TextChange.Reference()
		if err != nil {
			return nil, err
		}
		a.TextChange = &ref
	}
	return &a, nil
}
