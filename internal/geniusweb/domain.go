package geniusweb

import (
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ValueSet - допустимые значения одного issue
type ValueSet interface {
	Contains(v Value) bool
	Values() []Value
	Size() int
}

type DiscreteValueSet struct {
	Items []DiscreteValue
}

func (s *DiscreteValueSet) Contains(v Value) bool {
	for _, it := range s.Items {
		if sameValue(it, v) {
			return true
		}
	}
	return false
}

func (s *DiscreteValueSet) Values() []Value {
	out := make([]Value, len(s.Items))
	for i, it := range s.Items {
		out[i] = it
	}
	return out
}

func (s *DiscreteValueSet) Size() int { return len(s.Items) }

func (s *DiscreteValueSet) MarshalJSON() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []DiscreteValue{}
	}
	return json.Marshal(struct {
		Values []DiscreteValue `json:"values"`
	}{items})
}

// NumberValueSet - low, low+step, ..., high
type NumberValueSet struct {
	Low  float64
	High float64
	Step float64
}

func (s *NumberValueSet) Contains(v Value) bool {
	n, ok := v.(NumberValue)
	if !ok {
		return false
	}
	f := float64(n)
	if f < s.Low || f > s.High {
		return false
	}
	k := (f - s.Low) / s.Step
	return math.Abs(k-math.Round(k)) < 1e-9
}

func (s *NumberValueSet) Values() []Value {
	n := s.Size()
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NumberValue(s.Low+float64(i)*s.Step))
	}
	return out
}

func (s *NumberValueSet) Size() int {
	if s.Step <= 0 || s.High < s.Low {
		return 0
	}
	return int(math.Floor((s.High-s.Low)/s.Step+1e-9)) + 1
}

type numberRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Step float64 `json:"step"`
}

func (s *NumberValueSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Range numberRange `json:"range"`
	}{numberRange{Low: s.Low, High: s.High, Step: s.Step}})
}

func parseValueSet(raw []byte) (ValueSet, error) {
	r := gjson.ParseBytes(raw)
	if values := r.Get("values"); values.Exists() {
		set := &DiscreteValueSet{}
		for _, v := range values.Array() {
			if v.Type != gjson.String {
				return nil, ErrInvalidValue
			}
			set.Items = append(set.Items, DiscreteValue(v.String()))
		}
		return set, nil
	}
	if rng := r.Get("range"); rng.Exists() {
		set := &NumberValueSet{
			Low:  rng.Get("low").Float(),
			High: rng.Get("high").Float(),
			Step: rng.Get("step").Float(),
		}
		if set.Step <= 0 || set.High < set.Low {
			return nil, ErrInvalidRange
		}
		return set, nil
	}
	return nil, ErrInvalidValueSet
}

// Domain - имя и наборы значений по issue
type Domain struct {
	Name         string
	IssuesValues map[string]ValueSet
}

func (d *Domain) Issues() []string {
	issues := make([]string, 0, len(d.IssuesValues))
	for k := range d.IssuesValues {
		issues = append(issues, k)
	}
	sort.Strings(issues)
	return issues
}

// IsFitting - nil если все значения бида допустимы (частичный бид допустим)
func (d *Domain) IsFitting(b *Bid) error {
	if b == nil {
		return fmt.Errorf("%w: nil bid", ErrBidNotFitting)
	}
	for issue, v := range b.IssueValues {
		set, ok := d.IssuesValues[issue]
		if !ok {
			return fmt.Errorf("%w: unknown issue %s", ErrBidNotFitting, issue)
		}
		if !set.Contains(v) {
			return fmt.Errorf("%w: %s=%s", ErrBidNotFitting, issue, v)
		}
	}
	return nil
}

// IsComplete - бид задаёт значение для каждого issue
func (d *Domain) IsComplete(b *Bid) bool {
	if b == nil || d.IsFitting(b) != nil {
		return false
	}
	return len(b.IssueValues) == len(d.IssuesValues)
}

func (d *Domain) MarshalJSON() ([]byte, error) {
	issues := make(map[string]json.RawMessage, len(d.IssuesValues))
	for k, set := range d.IssuesValues {
		raw, err := json.Marshal(set)
		if err != nil {
			return nil, err
		}
		issues[k] = raw
	}
	return json.Marshal(struct {
		Name         string                     `json:"name"`
		IssuesValues map[string]json.RawMessage `json:"issuesValues"`
	}{d.Name, issues})
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         string                     `json:"name"`
		IssuesValues map[string]json.RawMessage `json:"issuesValues"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Name = raw.Name
	d.IssuesValues = make(map[string]ValueSet, len(raw.IssuesValues))
	for k, r := range raw.IssuesValues {
		set, err := parseValueSet(r)
		if err != nil {
			return fmt.Errorf("issue %s: %w", k, err)
		}
		d.IssuesValues[k] = set
	}
	return nil
}
