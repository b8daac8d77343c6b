// Package bridge запускает партии GeniusWeb внутри механизма SAO:
// синхронные Propose/Respond превращаются в события NotifyChange, а действия партии - обратно в ответы.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/convert"
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

// PartyFactory создаёт новый экземпляр партии на каждую сессию
type PartyFactory func() geniusweb.Party

// Negotiator - переговорщик механизма, за которым стоит партия GeniusWeb
type Negotiator struct {
	mechanism.BaseNegotiator

	factory PartyFactory
	opts    options
	log     *zap.Logger

	conv       *convert.Converter
	party      geniusweb.Party
	partyID    geniusweb.PartyID
	conn       *connection
	loop       *eventLoop
	dir        string
	profileURI string
	best       domain.Outcome

	pending  domain.Outcome
	lastBid  domain.Outcome
	failures int
	dead     bool

	endOnce sync.Once
}

var _ mechanism.Negotiator = (*Negotiator)(nil)

func New(name string, factory PartyFactory, opts ...Option) *Negotiator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	id := name + "-" + uuid.NewString()[:8]
	return &Negotiator{
		BaseNegotiator: mechanism.NewBaseNegotiator(id, name),
		factory:        factory,
		opts:           o,
		log:            o.logger.With(zap.String("negotiator", id)),
		partyID:        geniusweb.PartyID(id),
	}
}

// MakeNegotiator возвращает конструктор переговорщиков для одной фабрики партий
func MakeNegotiator(factory PartyFactory, opts ...Option) func(name string, extra ...Option) *Negotiator {
	return func(name string, extra ...Option) *Negotiator {
		all := append(append([]Option(nil), opts...), extra...)
		return New(name, factory, all...)
	}
}

func (n *Negotiator) PartyID() geniusweb.PartyID { return n.partyID }
func (n *Negotiator) ProfileURI() string         { return n.profileURI }
func (n *Negotiator) Failures() int              { return n.failures }
func (n *Negotiator) Dead() bool                 { return n.dead }

// Join переводит ufun в профиль, пишет его во временный каталог и создаёт партию
func (n *Negotiator) Join(nmi *mechanism.NMI, ufun domain.UtilityFunction) error {
	if n.factory == nil {
		return ErrNilFactory
	}
	if err := n.BaseNegotiator.Join(nmi, ufun); err != nil {
		return err
	}

	conv, err := convert.NewConverter(nmi.OutcomeSpace())
	if err != nil {
		return err
	}
	n.conv = conv

	data := n.opts.profileJSON
	if data == nil {
		profile, err := conv.ProfileFromUtility(n.Name(), ufun)
		if err != nil {
			return fmt.Errorf("convert ufun: %w", err)
		}
		if data, err = convert.EncodeProfile(profile); err != nil {
			return err
		}
	} else if _, err := geniusweb.ParseProfile(data); err != nil {
		return fmt.Errorf("profile json: %w", err)
	}

	dir := filepath.Join(n.opts.tmpDir, "gwbridge-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(dir, "profile.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("write profile: %w", err)
	}
	n.dir = dir
	n.profileURI = geniusweb.ProfileURI(path)

	party := n.factory()
	if party == nil {
		_ = os.RemoveAll(dir)
		return ErrNilFactory
	}
	if !party.Capabilities().Supports(geniusweb.ProtocolSAOP) {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("%w: %s", ErrUnsupportedProtocol, party.Description())
	}
	n.party = party
	n.conn = newConnection()
	party.Connect(n.conn)
	n.best = bestOutcome(ufun, conv.Space())

	n.log.Debug("party joined", zap.String("party", party.Description()), zap.String("profile", n.profileURI))
	return nil
}

// OnNegotiationStart запускает цикл событий и отправляет Settings
func (n *Negotiator) OnNegotiationStart(ctx context.Context, state mechanism.State) error {
	if n.party == nil {
		return ErrNotJoined
	}
	n.loop = startLoop(context.WithoutCancel(ctx), n.party, string(n.partyID), n.log)
	n.opts.observer.PartyStarted()

	settings := &geniusweb.Settings{
		ID:         n.partyID,
		ProfileURI: n.profileURI,
		Protocol:   geniusweb.ProtocolSAOP,
		Progress:   n.progress(),
		Parameters: n.opts.parameters,
	}
	return n.loop.deliver(ctx, settings)
}

func (n *Negotiator) progress() geniusweb.Progress {
	nmi := n.NMI()
	now := time.Now()
	if nmi.NSteps() > 0 {
		p := geniusweb.NewProgressRounds(nmi.NSteps(), time.Time{})
		if nmi.TimeLimit() > 0 {
			p.EndTime = now.Add(nmi.TimeLimit())
		}
		return p
	}
	return &geniusweb.ProgressTime{Duration: nmi.TimeLimit(), Start: now}
}

func (n *Negotiator) Respond(ctx context.Context, state mechanism.State, offer domain.Outcome, proposer string) (domain.Response, error) {
	if n.loop == nil {
		return domain.Reject, ErrNotJoined
	}
	if n.dead {
		return domain.End, nil
	}
	n.pending = nil

	offerBid, err := n.conv.OutcomeToBid(offer)
	if err != nil {
		return domain.Reject, err
	}
	if err := n.loop.deliver(ctx, &geniusweb.ActionDone{Action: &geniusweb.Offer{By: geniusweb.PartyID(proposer), Bid: offerBid}}); err != nil {
		return n.respondFailure(err)
	}

	action, err := n.turn(ctx)
	if err == nil {
		var resp domain.Response
		if resp, err = n.handleRespond(ctx, action, offerBid); err == nil {
			n.failures = 0
			return resp, nil
		}
	}
	return n.respondFailure(err)
}

func (n *Negotiator) handleRespond(ctx context.Context, action geniusweb.Action, offer *geniusweb.Bid) (domain.Response, error) {
	switch a := action.(type) {
	case *geniusweb.Accept:
		if !offer.Equal(a.Bid) {
			return domain.Reject, n.partyError(FailureAcceptMismatch, fmt.Errorf("accepted %s, standing offer %s", a.Bid, offer))
		}
		n.echo(ctx, a)
		return domain.Accept, nil
	case *geniusweb.EndNegotiation:
		n.echo(ctx, a)
		return domain.End, nil
	case *geniusweb.Offer:
		o, err := n.conv.BidToOutcome(a.Bid)
		if err != nil {
			return domain.Reject, n.partyError(FailureInvalidBid, err)
		}
		n.pending = o
		n.lastBid = o
		n.echo(ctx, a)
		return domain.Reject, nil
	}
	return domain.Reject, n.partyError(FailureUnsupportedAction, fmt.Errorf("%s", geniusweb.ActionName(action)))
}

func (n *Negotiator) Propose(ctx context.Context, state mechanism.State) (domain.Outcome, error) {
	if n.loop == nil {
		return nil, ErrNotJoined
	}
	if n.pending != nil {
		o := n.pending
		n.pending = nil
		return o, nil
	}
	if n.dead {
		return nil, nil
	}

	action, err := n.turn(ctx)
	if err == nil {
		var o domain.Outcome
		if o, err = n.handlePropose(ctx, action); err == nil {
			n.failures = 0
			return o, nil
		}
	}
	return n.proposeFailure(err)
}

func (n *Negotiator) handlePropose(ctx context.Context, action geniusweb.Action) (domain.Outcome, error) {
	switch a := action.(type) {
	case *geniusweb.Offer:
		o, err := n.conv.BidToOutcome(a.Bid)
		if err != nil {
			return nil, n.partyError(FailureInvalidBid, err)
		}
		n.lastBid = o
		n.echo(ctx, a)
		return o, nil
	case *geniusweb.EndNegotiation:
		// Propose не может завершить сессию: без предложения, End на следующем Respond
		n.echo(ctx, a)
		n.dead = true
		return nil, nil
	case *geniusweb.Accept:
		return nil, n.partyError(FailureAcceptMismatch, errors.New("accept without a standing offer"))
	}
	return nil, n.partyError(FailureUnsupportedAction, fmt.Errorf("%s", geniusweb.ActionName(action)))
}

// turn отправляет YourTurn и ждёт одно действие партии; всё ожидание укладывается в partyTimeout
func (n *Negotiator) turn(ctx context.Context) (geniusweb.Action, error) {
	start := time.Now()
	timer := time.NewTimer(n.opts.partyTimeout)
	defer timer.Stop()

	// пока прошлый YourTurn не обработан, новый не шлём
	for n.loop.awaitingTurn() {
		select {
		case <-n.loop.turnDone:
		case <-timer.C:
			return nil, n.partyError(FailureTimeout, ErrPartyBusy)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	n.conn.drain()
	if err := n.loop.deliver(ctx, &geniusweb.YourTurn{}); err != nil {
		return nil, err
	}

	select {
	case action := <-n.conn.actions:
		n.opts.observer.PartyAction(geniusweb.ActionName(action), time.Since(start))
		if action.Actor() != n.partyID {
			return nil, n.partyError(FailureForeignActor, fmt.Errorf("actor %q", action.Actor()))
		}
		return action, nil
	case err := <-n.loop.errs:
		var pe *PartyError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, n.partyError(FailureNotify, err)
	case <-timer.C:
		return nil, n.partyError(FailureTimeout, fmt.Errorf("no action within %s", n.opts.partyTimeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// echo рассылает собственное действие партии обратно, как это делает протокол SAOP
func (n *Negotiator) echo(ctx context.Context, action geniusweb.Action) {
	if err := n.loop.deliver(ctx, &geniusweb.ActionDone{Action: action}); err != nil {
		n.log.Debug("echo dropped", zap.Error(err))
	}
}

func (n *Negotiator) partyError(kind FailureKind, err error) *PartyError {
	return &PartyError{Kind: kind, Party: string(n.partyID), Err: err}
}

// failure учитывает сбой; true - партию больше не спрашиваем
func (n *Negotiator) failure(err error) (stop bool, propagate bool) {
	var pe *PartyError
	if !errors.As(err, &pe) {
		// отмена ctx и закрытый цикл - не вина партии
		return false, true
	}

	n.failures++
	n.opts.observer.PartyFailure(string(pe.Kind))
	n.log.Warn("party misbehaved",
		zap.String("kind", string(pe.Kind)),
		zap.Int("consecutive", n.failures),
		zap.String("policy", n.opts.policy.String()),
		zap.Error(pe.Err))

	if n.opts.maxFailures > 0 && n.failures >= n.opts.maxFailures {
		n.log.Warn("party treated as dead", zap.Int("failures", n.failures))
		n.dead = true
		return true, false
	}
	switch n.opts.policy {
	case Propagate:
		return false, true
	case EndOnFailure:
		n.dead = true
		return true, false
	}
	return false, false
}

func (n *Negotiator) respondFailure(err error) (domain.Response, error) {
	stop, propagate := n.failure(err)
	switch {
	case propagate:
		return domain.Reject, err
	case stop:
		return domain.End, nil
	}
	n.pending = n.fallback()
	return domain.Reject, nil
}

func (n *Negotiator) proposeFailure(err error) (domain.Outcome, error) {
	stop, propagate := n.failure(err)
	switch {
	case propagate:
		return nil, err
	case stop:
		return nil, nil
	}
	return n.fallback(), nil
}

func (n *Negotiator) fallback() domain.Outcome {
	if n.lastBid != nil {
		return n.lastBid.Clone()
	}
	return n.best.Clone()
}

// OnNegotiationEnd отправляет Finished, останавливает партию и удаляет профиль. Повторные вызовы ничего не делают.
func (n *Negotiator) OnNegotiationEnd(ctx context.Context, state mechanism.State) {
	n.endOnce.Do(func() {
		n.shutdown(ctx, state.Agreement)
	})
}

// Close освобождает ресурсы, если сессия так и не закончилась
func (n *Negotiator) Close() {
	n.endOnce.Do(func() {
		n.shutdown(context.Background(), nil)
	})
}

func (n *Negotiator) shutdown(ctx context.Context, agreement domain.Outcome) {
	if n.loop != nil {
		finished := &geniusweb.Finished{Agreements: map[geniusweb.PartyID]*geniusweb.Bid{}}
		if agreement != nil {
			if bid, err := n.conv.OutcomeToBid(agreement); err == nil {
				for _, id := range n.NMI().State().Negotiators {
					finished.Agreements[geniusweb.PartyID(id)] = bid
				}
			}
		}
		if err := n.loop.deliver(ctx, finished); err != nil {
			n.log.Debug("finished not delivered", zap.Error(err))
		}

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.opts.partyTimeout)
		defer cancel()
		if err := n.loop.close(stopCtx); err != nil {
			n.log.Warn("party event loop stop", zap.Error(err))
		}
		n.opts.observer.PartyStopped()
	}
	if n.party != nil {
		n.party.Terminate()
	}
	if n.conn != nil {
		n.conn.closed.Store(true)
	}
	if n.dir != "" {
		if err := os.RemoveAll(n.dir); err != nil {
			n.log.Warn("remove profile dir", zap.String("dir", n.dir), zap.Error(err))
		}
	}
	n.log.Debug("party terminated", zap.Int("failures", n.failures))
}

func bestOutcome(u domain.UtilityFunction, space *domain.OutcomeSpace) domain.Outcome {
	var (
		best  domain.Outcome
		bestU float64
	)
	for _, o := range space.Enumerate() {
		if v := u.Utility(o); best == nil || v > bestU {
			best, bestU = o, v
		}
	}
	return best
}
