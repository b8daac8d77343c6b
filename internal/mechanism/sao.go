// Package mechanism - Stacked Alternating Offers: раунды, в которых переговорщики по очереди отвечают и предлагают.
package mechanism

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

type Options struct {
	NSteps              int
	TimeLimit           time.Duration
	NegotiatorTimeLimit time.Duration
	EndOnNoOffer        bool
	Seed                int64
	Logger              *zap.Logger
}

type participant struct {
	neg  Negotiator
	ufun domain.UtilityFunction
}

type SAO struct {
	space *domain.OutcomeSpace
	opts  Options
	log   *zap.Logger
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu          sync.RWMutex
	negotiators []participant
	state       State
	trace       []domain.TraceEntry
	startedAt   time.Time
	acceptedBy  map[string]struct{}
}

func New(space *domain.OutcomeSpace, opts Options) (*SAO, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if opts.NSteps <= 0 && opts.TimeLimit <= 0 {
		return nil, ErrNoLimit
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SAO{
		space:      space,
		opts:       opts,
		log:        log,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		acceptedBy: make(map[string]struct{}),
	}, nil
}

func (m *SAO) OutcomeSpace() *domain.OutcomeSpace { return m.space }
func (m *SAO) Options() Options                   { return m.opts }

// Add подключает переговорщика до старта
func (m *SAO) Add(neg Negotiator, ufun domain.UtilityFunction) error {
	if ufun == nil {
		return domain.ErrNilUtilityFunction
	}
	m.mu.Lock()
	if m.state.Started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	for _, p := range m.negotiators {
		if p.neg.ID() == neg.ID() {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateNegotiator, neg.ID())
		}
	}
	m.mu.Unlock()

	if err := neg.Join(&NMI{mech: m}, ufun); err != nil {
		return fmt.Errorf("join %s: %w", neg.ID(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.negotiators = append(m.negotiators, participant{neg: neg, ufun: ufun})
	m.state.Negotiators = append(m.state.Negotiators, neg.ID())
	return nil
}

func (m *SAO) Negotiators() []Negotiator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Negotiator, len(m.negotiators))
	for i, p := range m.negotiators {
		out[i] = p.neg
	}
	return out
}

func (m *SAO) Ufun(id string) domain.UtilityFunction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.negotiators {
		if p.neg.ID() == id {
			return p.ufun
		}
	}
	return nil
}

func (m *SAO) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

func (m *SAO) Trace() []domain.TraceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TraceEntry, len(m.trace))
	copy(out, m.trace)
	return out
}

// Run прогоняет сессию до соглашения, разрыва, ошибки или таймаута.
// Возвращаемая ошибка - только отмена ctx; ошибки переговорщиков остаются в State.
func (m *SAO) Run(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state.Started {
		m.mu.Unlock()
		return m.State(), ErrAlreadyStarted
	}
	if len(m.negotiators) < 2 {
		m.mu.Unlock()
		return m.State(), ErrNotEnoughNegotiator
	}
	m.state.Started = true
	m.state.Running = true
	m.startedAt = m.now()
	m.mu.Unlock()

	log := m.log.With(zap.Int("negotiators", len(m.negotiators)), zap.String("space", m.space.Name))
	log.Debug("negotiation started", zap.Int("n_steps", m.opts.NSteps), zap.Duration("time_limit", m.opts.TimeLimit))

	runErr := m.run(ctx)

	m.mu.Lock()
	// колбэк мог упасть из-за отмены ctx раньше, чем run её заметил
	if runErr == nil && m.state.HasError && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	m.state.Running = false
	final := m.state.clone()
	m.mu.Unlock()

	for _, p := range m.negotiators {
		neg := p.neg
		if err := m.call(context.WithoutCancel(ctx), neg, func(ctx context.Context) error {
			neg.OnNegotiationEnd(ctx, final)
			return nil
		}); err != nil {
			log.Warn("on negotiation end failed", zap.String("negotiator", neg.ID()), zap.Error(err))
		}
	}

	log.Info("negotiation finished",
		zap.String("status", final.Status().String()),
		zap.Int("steps", final.Step),
		zap.Stringer("agreement", final.Agreement),
		zap.String("error", final.ErrorDetails))
	return m.State(), runErr
}

func (m *SAO) run(ctx context.Context) error {
	for _, p := range m.negotiators {
		neg := p.neg
		state := m.tick(0)
		if err := m.call(ctx, neg, func(ctx context.Context) error {
			return neg.OnNegotiationStart(ctx, state)
		}); err != nil {
			m.fail(neg, err)
			return nil
		}
	}

	for step := 0; m.opts.NSteps <= 0 || step < m.opts.NSteps; step++ {
		for _, p := range m.negotiators {
			if err := ctx.Err(); err != nil {
				m.mu.Lock()
				m.state.Broken = true
				m.state.HasError = true
				m.state.ErrorDetails = err.Error()
				m.mu.Unlock()
				return err
			}
			if m.expired() {
				m.timeout()
				return nil
			}
			if done := m.turn(ctx, p.neg, step); done {
				return nil
			}
		}
		m.mu.Lock()
		m.state.Step = step + 1
		m.mu.Unlock()
	}
	m.timeout()
	return nil
}

// turn: ответ на чужое предложение, затем (если не принял) своё предложение. true - сессия окончена.
func (m *SAO) turn(ctx context.Context, neg Negotiator, step int) bool {
	state := m.tick(step)

	if state.CurrentOffer != nil && state.CurrentProposer != neg.ID() {
		var resp domain.Response
		offer, proposer := state.CurrentOffer, state.CurrentProposer
		err := m.call(ctx, neg, func(ctx context.Context) error {
			var err error
			resp, err = neg.Respond(ctx, state, offer.Clone(), proposer)
			return err
		})
		if err != nil {
			m.fail(neg, err)
			return true
		}

		switch resp {
		case domain.Accept:
			m.record(neg, step, domain.ActionAccept, offer)
			m.mu.Lock()
			m.acceptedBy[neg.ID()] = struct{}{}
			agreed := len(m.acceptedBy) >= len(m.negotiators)-1
			if agreed {
				m.state.Agreement = offer.Clone()
			}
			m.mu.Unlock()
			return agreed
		case domain.End:
			m.record(neg, step, domain.ActionEnd, nil)
			m.mu.Lock()
			m.state.Broken = true
			m.mu.Unlock()
			return true
		case domain.Reject:
		default:
			m.fail(neg, fmt.Errorf("%w: %d", ErrInvalidResponse, resp))
			return true
		}
	}

	var proposal domain.Outcome
	err := m.call(ctx, neg, func(ctx context.Context) error {
		var err error
		proposal, err = neg.Propose(ctx, m.tick(step))
		return err
	})
	if err != nil {
		m.fail(neg, err)
		return true
	}

	if proposal == nil {
		m.record(neg, step, domain.ActionNone, nil)
		m.mu.Lock()
		defer m.mu.Unlock()
		m.state.CurrentOffer = nil
		m.state.CurrentProposer = ""
		clear(m.acceptedBy)
		if m.opts.EndOnNoOffer {
			m.state.Broken = true
			return true
		}
		return false
	}
	if !m.space.Contains(proposal) {
		m.fail(neg, fmt.Errorf("%w: %s", ErrInvalidProposal, proposal))
		return true
	}

	m.record(neg, step, domain.ActionOffer, proposal)
	m.mu.Lock()
	m.state.CurrentOffer = proposal.Clone()
	m.state.CurrentProposer = neg.ID()
	clear(m.acceptedBy)
	m.mu.Unlock()
	return false
}

// call выполняет колбэк переговорщика, превращая панику и превышение лимита в ошибку
func (m *SAO) call(ctx context.Context, neg Negotiator, fn func(ctx context.Context) error) error {
	if m.opts.NegotiatorTimeLimit <= 0 {
		return safeCall(ctx, fn)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.opts.NegotiatorTimeLimit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- safeCall(callCtx, fn) }()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			m.log.Warn("negotiator call timed out", zap.String("negotiator", neg.ID()), zap.Duration("limit", m.opts.NegotiatorTimeLimit))
			return fmt.Errorf("%w: %s", ErrNegotiatorTimeout, m.opts.NegotiatorTimeLimit)
		}
		return callCtx.Err()
	}
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrNegotiatorPanic, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

func (m *SAO) fail(neg Negotiator, err error) {
	m.log.Warn("negotiator failed", zap.String("negotiator", neg.ID()), zap.Error(err))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Broken = true
	m.state.HasError = true
	m.state.ErrorDetails = err.Error()
	m.state.ErredNegotiator = neg.ID()
}

func (m *SAO) timeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.TimedOut = true
}

func (m *SAO) expired() bool {
	return m.opts.TimeLimit > 0 && m.now().Sub(m.startedAt) >= m.opts.TimeLimit
}

// tick обновляет относительное время и возвращает снимок
func (m *SAO) tick(step int) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.RelativeTime = m.relativeTime(step)
	return m.state.clone()
}

func (m *SAO) relativeTime(step int) float64 {
	rt := 0.0
	if m.opts.NSteps > 0 {
		rt = float64(step+1) / float64(m.opts.NSteps+1)
	}
	if m.opts.TimeLimit > 0 {
		rt = max(rt, float64(m.now().Sub(m.startedAt))/float64(m.opts.TimeLimit))
	}
	return min(rt, 1)
}

func (m *SAO) record(neg Negotiator, step int, action domain.TraceAction, o domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = append(m.trace, domain.TraceEntry{
		Step:         step,
		Negotiator:   neg.ID(),
		Action:       action,
		Outcome:      o.Clone(),
		RelativeTime: m.state.RelativeTime,
		At:           m.now(),
	})
}
