package domain

import (
	"fmt"
	"math"
	"math/rand"
)

type UtilityFunction interface {
	Utility(o Outcome) float64
	ReservedValue() float64
	OutcomeSpace() *OutcomeSpace
}

// LinearAdditive - u(o) = sum(w_i * v_i(o_i))
type LinearAdditive struct {
	Space    *OutcomeSpace
	Weights  []float64
	Values   []map[string]float64
	Reserved float64
}

func NewLinearAdditive(space *OutcomeSpace, weights []float64, values []map[string]float64, reserved float64) (*LinearAdditive, error) {
	u := &LinearAdditive{Space: space, Weights: weights, Values: values, Reserved: reserved}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *LinearAdditive) Validate() error {
	if u.Space == nil {
		return ErrEmptyOutcomeSpace
	}
	if len(u.Weights) != len(u.Space.Issues) || len(u.Values) != len(u.Space.Issues) {
		return ErrInvalidWeights
	}
	for i, iss := range u.Space.Issues {
		if u.Weights[i] < 0 || math.IsNaN(u.Weights[i]) {
			return ErrInvalidWeights
		}
		for _, v := range iss.Values {
			if _, ok := u.Values[i][v]; !ok {
				return fmt.Errorf("%w: %s=%s", ErrInvalidValueTable, iss.Name, v)
			}
		}
	}
	return nil
}

func (u *LinearAdditive) Utility(o Outcome) float64 {
	if len(o) != len(u.Weights) {
		return 0
	}
	total := 0.0
	for i, v := range o {
		total += u.Weights[i] * u.Values[i][v]
	}
	return total
}

func (u *LinearAdditive) ReservedValue() float64      { return u.Reserved }
func (u *LinearAdditive) OutcomeSpace() *OutcomeSpace { return u.Space }

// Normalized возвращает копию: веса в сумме 1, каждая таблица значений с максимумом 1
func (u *LinearAdditive) Normalized() *LinearAdditive {
	out := u.clone()
	wsum := 0.0
	for _, w := range out.Weights {
		wsum += w
	}
	for i := range out.Weights {
		if wsum > 0 {
			out.Weights[i] /= wsum
		} else {
			out.Weights[i] = 1 / float64(len(out.Weights))
		}
		vmax := 0.0
		for _, v := range out.Values[i] {
			vmax = math.Max(vmax, v)
		}
		if vmax > 0 {
			for k, v := range out.Values[i] {
				out.Values[i][k] = v / vmax
			}
		}
	}
	return out
}

// ScaleMax масштабирует веса так, чтобы лучший исход давал ровно m
func (u *LinearAdditive) ScaleMax(m float64) *LinearAdditive {
	out := u.clone()
	best := 0.0
	for i := range out.Weights {
		vmax := math.Inf(-1)
		for _, v := range out.Values[i] {
			vmax = math.Max(vmax, v)
		}
		best += out.Weights[i] * vmax
	}
	if best <= 0 {
		return out
	}
	for i := range out.Weights {
		out.Weights[i] *= m / best
	}
	return out
}

func (u *LinearAdditive) clone() *LinearAdditive {
	out := &LinearAdditive{
		Space:    u.Space,
		Weights:  append([]float64(nil), u.Weights...),
		Values:   make([]map[string]float64, len(u.Values)),
		Reserved: u.Reserved,
	}
	for i, table := range u.Values {
		out.Values[i] = make(map[string]float64, len(table))
		for k, v := range table {
			out.Values[i][k] = v
		}
	}
	return out
}

// RandomLinearAdditive - случайная нормализованная функция полезности
func RandomLinearAdditive(rng *rand.Rand, space *OutcomeSpace) *LinearAdditive {
	u := &LinearAdditive{
		Space:   space,
		Weights: make([]float64, len(space.Issues)),
		Values:  make([]map[string]float64, len(space.Issues)),
	}
	for i, iss := range space.Issues {
		u.Weights[i] = rng.Float64()
		u.Values[i] = make(map[string]float64, len(iss.Values))
		for _, v := range iss.Values {
			u.Values[i][v] = rng.Float64()
		}
	}
	return u.Normalized()
}

// MappingUtility - произвольная таблица исход -> полезность
type MappingUtility struct {
	Space    *OutcomeSpace
	Table    map[string]float64
	Reserved float64
}

func (m *MappingUtility) Utility(o Outcome) float64   { return m.Table[o.Key()] }
func (m *MappingUtility) ReservedValue() float64      { return m.Reserved }
func (m *MappingUtility) OutcomeSpace() *OutcomeSpace { return m.Space }

// UtilityRange - минимум и максимум полезности по всем исходам
func UtilityRange(u UtilityFunction) (lo, hi float64) {
	outcomes := u.OutcomeSpace().Enumerate()
	if len(outcomes) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, o := range outcomes {
		v := u.Utility(o)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
