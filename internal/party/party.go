// Package party - каталог партий GeniusWeb, которые адаптер умеет запускать.
package party

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

const (
	ParamSeed     = "seed"
	ParamExponent = "e"
)

// session - состояние партии между Settings и Finished
type session struct {
	id          geniusweb.PartyID
	profile     geniusweb.UtilitySpace
	bids        *geniusweb.BidSpace
	progress    geniusweb.Progress
	reservation float64
	rng         *rand.Rand
	lastOffer   *geniusweb.Bid
	params      map[string]any
}

// BaseParty разбирает общие события; решение на YourTurn принимает decide
type BaseParty struct {
	geniusweb.DefaultParty

	name   string
	logger *zap.Logger
	decide func(s *session) geniusweb.Action

	mu    sync.Mutex
	state *session
}

func newBaseParty(name string, logger *zap.Logger) BaseParty {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseParty{name: name, logger: logger.With(zap.String("party", name))}
}

func (p *BaseParty) Description() string { return p.name }

func (p *BaseParty) NotifyChange(ctx context.Context, info geniusweb.Inform) error {
	switch v := info.(type) {
	case *geniusweb.Settings:
		return p.init(v)
	case *geniusweb.ActionDone:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state == nil {
			return nil
		}
		if offer, ok := v.Action.(*geniusweb.Offer); ok && offer.Actor() != p.state.id {
			p.state.lastOffer = offer.Bid
		}
		return nil
	case *geniusweb.YourTurn:
		return p.myTurn()
	case *geniusweb.Finished:
		p.logger.Debug("negotiation finished", zap.Int("agreements", len(v.Agreements)))
		return nil
	}
	return fmt.Errorf("%w: %T", geniusweb.ErrUnknownInform, info)
}

func (p *BaseParty) init(s *geniusweb.Settings) error {
	profile, err := geniusweb.LoadProfile(s.ProfileURI)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	bids, err := geniusweb.NewBidSpace(profile)
	if err != nil {
		return err
	}

	reservation := 0.0
	if res := profile.ReservationBid(); res != nil {
		reservation = profile.Utility(res)
	}
	seed := time.Now().UnixNano()
	if v, ok := s.Parameters[ParamSeed].(float64); ok {
		seed = int64(v)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = &session{
		id:          s.ID,
		profile:     profile,
		bids:        bids,
		progress:    s.Progress,
		reservation: reservation,
		rng:         rand.New(rand.NewSource(seed)),
		params:      s.Parameters,
	}
	p.logger.Debug("settings received", zap.String("id", string(s.ID)), zap.Int("bids", bids.Size()), zap.Float64("reservation", reservation))
	return nil
}

func (p *BaseParty) myTurn() error {
	p.mu.Lock()
	s := p.state
	if s == nil {
		p.mu.Unlock()
		return geniusweb.ErrNotConnected
	}
	action := p.decide(s)
	if rounds, ok := s.progress.(*geniusweb.ProgressRounds); ok {
		s.progress = rounds.Advance()
	}
	p.mu.Unlock()

	if action == nil {
		return nil
	}
	return p.Send(action)
}

func (p *BaseParty) Terminate() {
	p.mu.Lock()
	p.state = nil
	p.mu.Unlock()
	p.DefaultParty.Terminate()
}

func (s *session) time() float64 {
	if s.progress == nil {
		return 0
	}
	return s.progress.Get(time.Now())
}

func (s *session) utility(b *geniusweb.Bid) float64 { return s.profile.Utility(b) }

// acceptable - не хуже reservation
func (s *session) acceptable(b *geniusweb.Bid) bool {
	return b != nil && s.utility(b) >= s.reservation
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return def
}
