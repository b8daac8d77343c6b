package geniusweb

import (
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Value - значение issue в биде: DiscreteValue или NumberValue
type Value interface {
	String() string
	isValue()
}

type DiscreteValue string

func (v DiscreteValue) String() string { return string(v) }
func (DiscreteValue) isValue()         {}

type NumberValue float64

func (v NumberValue) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (NumberValue) isValue()         {}

func parseValue(raw []byte) (Value, error) {
	r := gjson.ParseBytes(raw)
	switch r.Type {
	case gjson.String:
		return DiscreteValue(r.String()), nil
	case gjson.Number:
		return NumberValue(r.Float()), nil
	}
	return nil, ErrInvalidValue
}

func parseValueMap(raw []byte) (map[string]Value, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(fields))
	for k, f := range fields {
		v, err := parseValue(f)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// sameValue сравнивает значения по каноническому строковому виду
func sameValue(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
