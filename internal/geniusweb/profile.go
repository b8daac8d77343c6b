package geniusweb

import (
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

const linearAdditiveType = "LinearAdditiveUtilitySpace"

// Profile - предпочтения партии над бидами домена
type Profile interface {
	Name() string
	Domain() *Domain
	ReservationBid() *Bid
}

// UtilitySpace - профиль, который умеет считать полезность бида
type UtilitySpace interface {
	Profile
	Utility(b *Bid) float64
}

// ValueSetUtilities - полезность значений одного issue
type ValueSetUtilities interface {
	Utility(v Value) float64
}

type DiscreteValueSetUtilities struct {
	ValueUtilities map[string]float64
}

func (u *DiscreteValueSetUtilities) Utility(v Value) float64 {
	if v == nil {
		return 0
	}
	return u.ValueUtilities[v.String()]
}

// NumberValueSetUtilities - линейная интерполяция между low и high, вне отрезка 0
type NumberValueSetUtilities struct {
	LowValue    float64
	LowUtility  float64
	HighValue   float64
	HighUtility float64
}

func (u *NumberValueSetUtilities) Utility(v Value) float64 {
	n, ok := v.(NumberValue)
	if !ok {
		return 0
	}
	x := float64(n)
	if x < math.Min(u.LowValue, u.HighValue) || x > math.Max(u.LowValue, u.HighValue) {
		return 0
	}
	if u.HighValue == u.LowValue {
		return u.LowUtility
	}
	frac := (x - u.LowValue) / (u.HighValue - u.LowValue)
	return u.LowUtility + frac*(u.HighUtility-u.LowUtility)
}

type LinearAdditiveUtilitySpace struct {
	ProfileName    string
	ProfileDomain  *Domain
	IssueWeights   map[string]float64
	IssueUtilities map[string]ValueSetUtilities
	Reservation    *Bid
}

func (s *LinearAdditiveUtilitySpace) Name() string         { return s.ProfileName }
func (s *LinearAdditiveUtilitySpace) Domain() *Domain      { return s.ProfileDomain }
func (s *LinearAdditiveUtilitySpace) ReservationBid() *Bid { return s.Reservation }

// Utility - сумма w_i * u_i(v_i); отсутствующие в биде issue дают 0
func (s *LinearAdditiveUtilitySpace) Utility(b *Bid) float64 {
	if b == nil {
		return 0
	}
	total := 0.0
	for issue, w := range s.IssueWeights {
		utils, ok := s.IssueUtilities[issue]
		if !ok {
			continue
		}
		if v := b.Value(issue); v != nil {
			total += w * utils.Utility(v)
		}
	}
	return total
}

// Validate проверяет согласованность весов, утилит и reservation bid с доменом
func (s *LinearAdditiveUtilitySpace) Validate() error {
	if s.ProfileDomain == nil {
		return fmt.Errorf("%w: profile without domain", ErrUnsupportedProfile)
	}
	for issue := range s.ProfileDomain.IssuesValues {
		if _, ok := s.IssueWeights[issue]; !ok {
			return fmt.Errorf("missing weight for issue %s", issue)
		}
		if _, ok := s.IssueUtilities[issue]; !ok {
			return fmt.Errorf("missing utilities for issue %s", issue)
		}
	}
	if s.Reservation != nil {
		if err := s.ProfileDomain.IsFitting(s.Reservation); err != nil {
			return fmt.Errorf("reservation bid: %w", err)
		}
	}
	return nil
}

type linearAdditiveJSON struct {
	Domain         *Domain                    `json:"domain"`
	IssueUtilities map[string]json.RawMessage `json:"issueUtilities"`
	IssueWeights   map[string]float64         `json:"issueWeights"`
	Name           string                     `json:"name"`
	ReservationBid *Bid                       `json:"reservationBid,omitempty"`
}

func (s *LinearAdditiveUtilitySpace) MarshalJSON() ([]byte, error) {
	utils := make(map[string]json.RawMessage, len(s.IssueUtilities))
	for issue, u := range s.IssueUtilities {
		raw, err := marshalValueSetUtilities(u)
		if err != nil {
			return nil, fmt.Errorf("issue %s: %w", issue, err)
		}
		utils[issue] = raw
	}
	return wrap(linearAdditiveType, linearAdditiveJSON{
		Domain:         s.ProfileDomain,
		IssueUtilities: utils,
		IssueWeights:   s.IssueWeights,
		Name:           s.ProfileName,
		ReservationBid: s.Reservation,
	})
}

func marshalValueSetUtilities(u ValueSetUtilities) ([]byte, error) {
	switch v := u.(type) {
	case *DiscreteValueSetUtilities:
		return wrap("DiscreteValueSetUtilities", struct {
			ValueUtilities map[string]float64 `json:"valueUtilities"`
		}{v.ValueUtilities})
	case *NumberValueSetUtilities:
		return wrap("NumberValueSetUtilities", struct {
			LowValue    float64 `json:"lowValue"`
			LowUtility  float64 `json:"lowUtility"`
			HighValue   float64 `json:"highValue"`
			HighUtility float64 `json:"highUtility"`
		}{v.LowValue, v.LowUtility, v.HighValue, v.HighUtility})
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedProfile, u)
}

func parseValueSetUtilities(raw []byte) (ValueSetUtilities, error) {
	name, body, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	switch name {
	case "DiscreteValueSetUtilities":
		var v struct {
			ValueUtilities map[string]float64 `json:"valueUtilities"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return &DiscreteValueSetUtilities{ValueUtilities: v.ValueUtilities}, nil
	case "NumberValueSetUtilities":
		var v struct {
			LowValue    float64 `json:"lowValue"`
			LowUtility  float64 `json:"lowUtility"`
			HighValue   float64 `json:"highValue"`
			HighUtility float64 `json:"highUtility"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return &NumberValueSetUtilities{
			LowValue:    v.LowValue,
			LowUtility:  v.LowUtility,
			HighValue:   v.HighValue,
			HighUtility: v.HighUtility,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProfile, name)
}

// ParseProfile декодирует профиль по ключу-обёртке; поддерживается только LinearAdditiveUtilitySpace
func ParseProfile(data []byte) (UtilitySpace, error) {
	name, body, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	if name != linearAdditiveType {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProfile, name)
	}

	var raw linearAdditiveJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	space := &LinearAdditiveUtilitySpace{
		ProfileName:    raw.Name,
		ProfileDomain:  raw.Domain,
		IssueWeights:   raw.IssueWeights,
		IssueUtilities: make(map[string]ValueSetUtilities, len(raw.IssueUtilities)),
		Reservation:    raw.ReservationBid,
	}
	for issue, r := range raw.IssueUtilities {
		u, err := parseValueSetUtilities(r)
		if err != nil {
			return nil, fmt.Errorf("issue %s: %w", issue, err)
		}
		space.IssueUtilities[issue] = u
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	return space, nil
}
