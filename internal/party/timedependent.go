package party

import (
	"math"

	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

// TimeDependent - уступает по кривой goal(t) = min + (max-min)·(1 - t^(1/e)).
// e < 1 держит позицию до конца (boulware), e > 1 быстро уступает (conceder), e = 0 не уступает совсем.
type TimeDependent struct {
	BaseParty
	e float64
}

func NewTimeDependent(name string, e float64, logger *zap.Logger) *TimeDependent {
	p := &TimeDependent{BaseParty: newBaseParty(name, logger), e: e}
	p.decide = p.choose
	return p
}

func NewBoulware(logger *zap.Logger) *TimeDependent  { return NewTimeDependent("boulware", 0.2, logger) }
func NewConceder(logger *zap.Logger) *TimeDependent  { return NewTimeDependent("conceder", 2, logger) }
func NewLinear(logger *zap.Logger) *TimeDependent    { return NewTimeDependent("linear", 1, logger) }
func NewHardliner(logger *zap.Logger) *TimeDependent { return NewTimeDependent("hardliner", 0, logger) }

func (p *TimeDependent) E() float64 { return p.e }

func (p *TimeDependent) choose(s *session) geniusweb.Action {
	e := floatParam(s.params, ParamExponent, p.e)
	goal := p.goal(s, s.time(), e)

	bid := s.bids.Pick(s.rng, goal+s.bids.Tolerance()/2, s.bids.Tolerance()/2)
	// принимаем, только если предложение не хуже собственного следующего бида
	if s.lastOffer != nil && s.acceptable(s.lastOffer) && s.utility(s.lastOffer) >= s.utility(bid) {
		return &geniusweb.Accept{By: s.id, Bid: s.lastOffer}
	}
	return &geniusweb.Offer{By: s.id, Bid: bid}
}

func (p *TimeDependent) goal(s *session, t, e float64) float64 {
	_, hi := s.bids.Max()
	_, lo := s.bids.Min()
	lo = math.Max(lo, s.reservation)
	return lo + (hi-lo)*(1-concession(t, e))
}

// concession - доля уступки к моменту t
func concession(t, e float64) float64 {
	if e == 0 {
		return 0
	}
	return math.Pow(math.Min(math.Max(t, 0), 1), 1/e)
}
