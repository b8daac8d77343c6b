package party

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

const randomAcceptThreshold = 0.6

// Random предлагает случайные биды не хуже reservation и принимает всё, что дороже 0.6
type Random struct {
	BaseParty
}

func NewRandom(logger *zap.Logger) *Random {
	p := &Random{BaseParty: newBaseParty("random", logger)}
	p.decide = p.choose
	return p
}

func (p *Random) choose(s *session) geniusweb.Action {
	if s.lastOffer != nil && s.acceptable(s.lastOffer) && s.utility(s.lastOffer) > randomAcceptThreshold {
		return &geniusweb.Accept{By: s.id, Bid: s.lastOffer}
	}
	for attempt := 0; attempt < 20; attempt++ {
		if bid := s.bids.Random(s.rng); s.acceptable(bid) {
			return &geniusweb.Offer{By: s.id, Bid: bid}
		}
	}
	best, _ := s.bids.Max()
	return &geniusweb.Offer{By: s.id, Bid: best}
}

// Stupid предлагает случайные биды и никогда не соглашается
type Stupid struct {
	BaseParty
}

func NewStupid(logger *zap.Logger) *Stupid {
	p := &Stupid{BaseParty: newBaseParty("stupid", logger)}
	p.decide = func(s *session) geniusweb.Action {
		return &geniusweb.Offer{By: s.id, Bid: s.bids.Random(s.rng)}
	}
	return p
}
