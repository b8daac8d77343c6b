package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

var (
	ErrNoSides          = errors.New("scenario needs at least two sides")
	ErrUnknownSide      = errors.New("unknown scenario side")
	ErrUnknownValueFunc = errors.New("unknown value function type")
	ErrNonNumericValue  = errors.New("value function needs numeric issue values")
	ErrMissingWeight    = errors.New("weight is missing for issue")
)

// Value function types
const (
	ValueTable    = "table"
	ValueAffine   = "affine"
	ValueLinear   = "linear"
	ValueIdentity = "identity"
)

// Scenario - домен переговоров и функции полезности сторон
type Scenario struct {
	Name      string
	Space     *domain.OutcomeSpace
	Sides     []Side
	Steps     int
	TimeLimit time.Duration
}

type Side struct {
	Name string
	Ufun *domain.LinearAdditive
}

type scenarioFile struct {
	Name         string      `yaml:"name"`
	Steps        int         `yaml:"steps"`
	TimeLimitSec float64     `yaml:"time_limit_sec"`
	Issues       []issueFile `yaml:"issues"`
	Sides        []sideFile  `yaml:"sides"`
}

type issueFile struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
	Count  int      `yaml:"count"`
}

type sideFile struct {
	Name     string                   `yaml:"name"`
	Reserved *float64                 `yaml:"reserved"`
	ScaleMax float64                  `yaml:"scale_max"`
	Weights  map[string]float64       `yaml:"weights"`
	Values   map[string]valueFuncFile `yaml:"values"`
}

type valueFuncFile struct {
	Type  string             `yaml:"type"`
	Table map[string]float64 `yaml:"table"`
	Slope float64            `yaml:"slope"`
	Bias  float64            `yaml:"bias"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f scenarioFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	issues := make([]domain.Issue, 0, len(f.Issues))
	for _, iss := range f.Issues {
		if len(iss.Values) == 0 && iss.Count > 0 {
			issues = append(issues, domain.IntIssue(iss.Name, iss.Count))
			continue
		}
		issues = append(issues, domain.NewIssue(iss.Name, iss.Values...))
	}
	space, err := domain.NewOutcomeSpace(f.Name, issues...)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", f.Name, err)
	}

	if len(f.Sides) < 2 {
		return nil, ErrNoSides
	}

	sc := &Scenario{
		Name:      f.Name,
		Space:     space,
		Steps:     f.Steps,
		TimeLimit: time.Duration(f.TimeLimitSec * float64(time.Second)),
	}
	for _, sf := range f.Sides {
		u, err := sf.build(space)
		if err != nil {
			return nil, fmt.Errorf("side %q: %w", sf.Name, err)
		}
		sc.Sides = append(sc.Sides, Side{Name: sf.Name, Ufun: u})
	}
	return sc, nil
}

// Side ищет сторону по имени без учета регистра
func (s *Scenario) Side(name string) (Side, error) {
	for _, side := range s.Sides {
		if strings.EqualFold(side.Name, name) {
			return side, nil
		}
	}
	return Side{}, fmt.Errorf("%w: %s", ErrUnknownSide, name)
}

func (sf sideFile) build(space *domain.OutcomeSpace) (*domain.LinearAdditive, error) {
	weights := make([]float64, len(space.Issues))
	values := make([]map[string]float64, len(space.Issues))
	for i, iss := range space.Issues {
		w, ok := sf.Weights[iss.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingWeight, iss.Name)
		}
		weights[i] = w

		table, err := sf.Values[iss.Name].evaluate(iss)
		if err != nil {
			return nil, fmt.Errorf("issue %s: %w", iss.Name, err)
		}
		values[i] = table
	}

	// без reserved сторона соглашается на что угодно
	reserved := math.Inf(-1)
	if sf.Reserved != nil {
		reserved = *sf.Reserved
	}

	u, err := domain.NewLinearAdditive(space, weights, values, reserved)
	if err != nil {
		return nil, err
	}
	if sf.ScaleMax > 0 {
		u = u.ScaleMax(sf.ScaleMax)
	}
	return u, nil
}

// evaluate строит таблицу значение -> полезность; пустой type значит identity
func (vf valueFuncFile) evaluate(iss domain.Issue) (map[string]float64, error) {
	out := make(map[string]float64, len(iss.Values))
	if vf.Type == ValueTable {
		for _, v := range iss.Values {
			out[v] = vf.Table[v]
		}
		return out, nil
	}

	var slope, bias float64
	switch vf.Type {
	case "", ValueIdentity:
		slope = 1
	case ValueLinear:
		slope = vf.Slope
	case ValueAffine:
		slope, bias = vf.Slope, vf.Bias
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownValueFunc, vf.Type)
	}
	for _, v := range iss.Values {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNonNumericValue, v)
		}
		out[v] = slope*x + bias
	}
	return out, nil
}
