package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Issue - один предмет переговоров с дискретным набором значений
type Issue struct {
	Name   string
	Values []string
}

func NewIssue(name string, values ...string) Issue {
	return Issue{Name: name, Values: append([]string(nil), values...)}
}

// IntIssue - значения "0".."n-1", как make_issue(n, name)
func IntIssue(name string, n int) Issue {
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, strconv.Itoa(i))
	}
	return Issue{Name: name, Values: values}
}

// RangeIssue - целые значения lo..hi-1
func RangeIssue(name string, lo, hi int) Issue {
	values := make([]string, 0, max(hi-lo, 0))
	for v := lo; v < hi; v++ {
		values = append(values, strconv.Itoa(v))
	}
	return Issue{Name: name, Values: values}
}

func (i Issue) Cardinality() int { return len(i.Values) }

func (i Issue) ValueIndex(v string) int {
	for idx, val := range i.Values {
		if val == v {
			return idx
		}
	}
	return -1
}

func (i Issue) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyIssueName
	}
	if len(i.Values) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyIssue, i.Name)
	}
	seen := make(map[string]struct{}, len(i.Values))
	for _, v := range i.Values {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%w: %s=%s", ErrDuplicateValue, i.Name, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Outcome - по одному значению на каждый issue, в порядке OutcomeSpace.Issues
type Outcome []string

const keySep = "\x1f"

func (o Outcome) Key() string { return strings.Join(o, keySep) }

func (o Outcome) Equal(other Outcome) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

func (o Outcome) String() string { return "(" + strings.Join(o, ", ") + ")" }

func (o Outcome) Clone() Outcome {
	if o == nil {
		return nil
	}
	return append(Outcome(nil), o...)
}

type OutcomeSpace struct {
	Name   string
	Issues []Issue
}

func NewOutcomeSpace(name string, issues ...Issue) (*OutcomeSpace, error) {
	s := &OutcomeSpace{Name: name, Issues: issues}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *OutcomeSpace) Validate() error {
	if s == nil || len(s.Issues) == 0 {
		return ErrEmptyOutcomeSpace
	}
	names := make(map[string]struct{}, len(s.Issues))
	for _, iss := range s.Issues {
		if err := iss.Validate(); err != nil {
			return err
		}
		if _, ok := names[iss.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateIssue, iss.Name)
		}
		names[iss.Name] = struct{}{}
	}
	return nil
}

func (s *OutcomeSpace) IssueIndex(name string) int {
	for i, iss := range s.Issues {
		if iss.Name == name {
			return i
		}
	}
	return -1
}

func (s *OutcomeSpace) Cardinality() int {
	if len(s.Issues) == 0 {
		return 0
	}
	n := 1
	for _, iss := range s.Issues {
		n *= len(iss.Values)
	}
	return n
}

func (s *OutcomeSpace) Contains(o Outcome) bool {
	if len(o) != len(s.Issues) {
		return false
	}
	for i, iss := range s.Issues {
		if iss.ValueIndex(o[i]) < 0 {
			return false
		}
	}
	return true
}

// Enumerate перебирает все исходы, первый issue меняется медленнее всех
func (s *OutcomeSpace) Enumerate() []Outcome {
	total := s.Cardinality()
	if total == 0 {
		return nil
	}
	out := make([]Outcome, 0, total)
	idx := make([]int, len(s.Issues))
	for {
		o := make(Outcome, len(s.Issues))
		for i, iss := range s.Issues {
			o[i] = iss.Values[idx[i]]
		}
		out = append(out, o)

		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(s.Issues[pos].Values) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

// EnumerateOrSample - все исходы, если их не больше maxCardinality, иначе случайная выборка без повторов
func (s *OutcomeSpace) EnumerateOrSample(maxCardinality int, rng *rand.Rand) []Outcome {
	if maxCardinality <= 0 || s.Cardinality() <= maxCardinality {
		return s.Enumerate()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	seen := make(map[string]struct{}, maxCardinality)
	out := make([]Outcome, 0, maxCardinality)
	for len(out) < maxCardinality {
		o := s.Random(rng)
		if _, ok := seen[o.Key()]; ok {
			continue
		}
		seen[o.Key()] = struct{}{}
		out = append(out, o)
	}
	return out
}

func (s *OutcomeSpace) Random(rng *rand.Rand) Outcome {
	o := make(Outcome, len(s.Issues))
	for i, iss := range s.Issues {
		o[i] = iss.Values[rng.Intn(len(iss.Values))]
	}
	return o
}
