// Package convert переводит исходы и функции полезности механизма в биды и профили GeniusWeb и обратно.
package convert

import (
	"errors"
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

var (
	ErrUnsupportedUtility = errors.New("only linear additive utility functions can be converted")
	ErrDomainMismatch     = errors.New("profile domain does not match outcome space")
)

// Converter привязан к одному пространству исходов
type Converter struct {
	space *domain.OutcomeSpace
}

func NewConverter(space *domain.OutcomeSpace) (*Converter, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	return &Converter{space: space}, nil
}

func (c *Converter) Space() *domain.OutcomeSpace { return c.space }

func (c *Converter) OutcomeToBid(o domain.Outcome) (*geniusweb.Bid, error) {
	if !c.space.Contains(o) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOutcome, o)
	}
	values := make(map[string]geniusweb.Value, len(o))
	for i, iss := range c.space.Issues {
		values[iss.Name] = geniusweb.DiscreteValue(o[i])
	}
	return &geniusweb.Bid{IssueValues: values}, nil
}

// BidToOutcome требует полный бид; значения сверяются по строковому виду
func (c *Converter) BidToOutcome(b *geniusweb.Bid) (domain.Outcome, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil bid", geniusweb.ErrBidNotFitting)
	}
	if len(b.IssueValues) != len(c.space.Issues) {
		return nil, fmt.Errorf("%w: bid has %d issues, space has %d", geniusweb.ErrBidNotFitting, len(b.IssueValues), len(c.space.Issues))
	}
	o := make(domain.Outcome, len(c.space.Issues))
	for i, iss := range c.space.Issues {
		v := b.Value(iss.Name)
		if v == nil {
			return nil, fmt.Errorf("%w: missing issue %s", geniusweb.ErrBidNotFitting, iss.Name)
		}
		label := v.String()
		if iss.ValueIndex(label) < 0 {
			return nil, fmt.Errorf("%w: %s=%s", geniusweb.ErrBidNotFitting, iss.Name, label)
		}
		o[i] = label
	}
	return o, nil
}

// Domain - домен GeniusWeb с DiscreteValueSet на каждый issue
func (c *Converter) Domain(name string) *geniusweb.Domain {
	if name == "" {
		name = c.space.Name
	}
	d := &geniusweb.Domain{Name: name, IssuesValues: make(map[string]geniusweb.ValueSet, len(c.space.Issues))}
	for _, iss := range c.space.Issues {
		items := make([]geniusweb.DiscreteValue, len(iss.Values))
		for i, v := range iss.Values {
			items[i] = geniusweb.DiscreteValue(v)
		}
		d.IssuesValues[iss.Name] = &geniusweb.DiscreteValueSet{Items: items}
	}
	return d
}

// ProfileFromUtility строит LinearAdditiveUtilitySpace из LinearAdditive.
// Reserved value превращается в reservation bid: худший исход с полезностью не ниже reserved.
func (c *Converter) ProfileFromUtility(name string, u domain.UtilityFunction) (*geniusweb.LinearAdditiveUtilitySpace, error) {
	if u == nil {
		return nil, domain.ErrNilUtilityFunction
	}
	la, ok := u.(*domain.LinearAdditive)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedUtility, u)
	}
	if err := la.Validate(); err != nil {
		return nil, err
	}

	profile := &geniusweb.LinearAdditiveUtilitySpace{
		ProfileName:    name,
		ProfileDomain:  c.Domain(c.space.Name),
		IssueWeights:   make(map[string]float64, len(c.space.Issues)),
		IssueUtilities: make(map[string]geniusweb.ValueSetUtilities, len(c.space.Issues)),
	}
	for i, iss := range c.space.Issues {
		profile.IssueWeights[iss.Name] = la.Weights[i]
		table := make(map[string]float64, len(iss.Values))
		for _, v := range iss.Values {
			table[v] = la.Values[i][v]
		}
		profile.IssueUtilities[iss.Name] = &geniusweb.DiscreteValueSetUtilities{ValueUtilities: table}
	}

	reservation, err := c.reservationOutcome(la)
	if err != nil {
		return nil, err
	}
	if reservation != nil {
		bid, err := c.OutcomeToBid(reservation)
		if err != nil {
			return nil, err
		}
		profile.Reservation = bid
	}
	return profile, nil
}

func (c *Converter) reservationOutcome(u domain.UtilityFunction) (domain.Outcome, error) {
	reserved := u.ReservedValue()
	if math.IsInf(reserved, -1) || math.IsNaN(reserved) {
		return nil, nil
	}

	outcomes := c.space.Enumerate()
	sort.SliceStable(outcomes, func(i, j int) bool { return u.Utility(outcomes[i]) < u.Utility(outcomes[j]) })
	if len(outcomes) == 0 || reserved <= u.Utility(outcomes[0]) {
		return nil, nil
	}
	for _, o := range outcomes {
		if u.Utility(o) >= reserved {
			return o, nil
		}
	}
	// reserved выше любого исхода: лучший исход, чтобы соглашение не было хуже ничего
	return outcomes[len(outcomes)-1], nil
}

// UtilityFromProfile - обратное преобразование; reserved value берётся из reservation bid
func (c *Converter) UtilityFromProfile(p geniusweb.UtilitySpace) (*domain.LinearAdditive, error) {
	la, ok := p.(*geniusweb.LinearAdditiveUtilitySpace)
	if !ok {
		return nil, fmt.Errorf("%w: %T", geniusweb.ErrUnsupportedProfile, p)
	}

	u := &domain.LinearAdditive{
		Space:   c.space,
		Weights: make([]float64, len(c.space.Issues)),
		Values:  make([]map[string]float64, len(c.space.Issues)),
	}
	for i, iss := range c.space.Issues {
		w, ok := la.IssueWeights[iss.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no weight for %s", ErrDomainMismatch, iss.Name)
		}
		utils, ok := la.IssueUtilities[iss.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no utilities for %s", ErrDomainMismatch, iss.Name)
		}
		u.Weights[i] = w
		u.Values[i] = make(map[string]float64, len(iss.Values))
		for _, v := range iss.Values {
			u.Values[i][v] = utils.Utility(geniusweb.DiscreteValue(v))
		}
	}

	if res := la.ReservationBid(); res != nil {
		o, err := c.BidToOutcome(res)
		if err != nil {
			return nil, fmt.Errorf("reservation bid: %w", err)
		}
		u.Reserved = u.Utility(o)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// EncodeProfile - JSON профиля в формате GeniusWeb
func EncodeProfile(p *geniusweb.LinearAdditiveUtilitySpace) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.ProfileName, err)
	}
	return data, nil
}
