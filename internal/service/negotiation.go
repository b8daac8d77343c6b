package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/bridge"
	"github.com/kitbuilder587/negotiation-bridge/internal/cache"
	"github.com/kitbuilder587/negotiation-bridge/internal/config"
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
	"github.com/kitbuilder587/negotiation-bridge/internal/negotiator"
	"github.com/kitbuilder587/negotiation-bridge/internal/party"
	"github.com/kitbuilder587/negotiation-bridge/internal/repository"
)

var (
	ErrNoScenario    = errors.New("scenario is required")
	ErrAgentCount    = errors.New("need one agent per scenario side")
	ErrUnknownAgent  = errors.New("agent is neither a party nor a native negotiator")
	ErrNoRepository  = errors.New("session repository is not configured")
	ErrPartyIsBroken = errors.New("party is marked broken")
)

// Agent kinds
const (
	KindParty  = "party"
	KindRemote = "remote"
	KindNative = "native"
)

// Recorder - метрики сессий и событий адаптера
type Recorder interface {
	bridge.Observer
	RecordSession(status string, steps int, duration time.Duration)
	IncSessionsRunning()
	DecSessionsRunning()
}

type nopRecorder struct{}

func (nopRecorder) PartyStarted()                            {}
func (nopRecorder) PartyStopped()                            {}
func (nopRecorder) PartyFailure(string)                      {}
func (nopRecorder) PartyAction(string, time.Duration)        {}
func (nopRecorder) RecordSession(string, int, time.Duration) {}
func (nopRecorder) IncSessionsRunning()                      {}
func (nopRecorder) DecSessionsRunning()                      {}

// Config - значения по умолчанию для сессий
type Config struct {
	Steps               int
	TimeLimit           time.Duration
	NegotiatorTimeLimit time.Duration
	EndOnNoOffer        bool
	BridgeOptions       []bridge.Option
}

type NegotiationService struct {
	parties  *party.Registry
	profiles *cache.ProfileCache
	repo     repository.SessionRepository
	recorder Recorder
	cfg      Config
	logger   *zap.Logger
}

type RunRequest struct {
	Scenario *config.Scenario
	// Agents - по одному на сторону сценария, в том же порядке.
	// Имя партии из каталога, имя встроенного переговорщика или ws:// адрес партии.
	Agents     []string
	Steps      int
	TimeLimit  time.Duration
	Seed       int64
	Parameters map[string]any
}

type Participant struct {
	Side         string
	Agent        string
	Kind         string
	NegotiatorID string
	Utility      float64
	Reserved     float64
	Failures     int
	Dead         bool
}

type SessionResult struct {
	ID             string
	Scenario       string
	Status         domain.SessionStatus
	Agreement      domain.Outcome
	Participants   []Participant
	Steps          int
	Welfare        float64
	Nash           float64
	ParetoDistance float64
	ErrorDetails   string
	Duration       time.Duration
	Trace          []domain.TraceEntry
}

// NewNegotiationService - repo и recorder могут быть nil
func NewNegotiationService(parties *party.Registry, profiles *cache.ProfileCache, repo repository.SessionRepository, recorder Recorder, cfg Config, logger *zap.Logger) *NegotiationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &NegotiationService{
		parties:  parties,
		profiles: profiles,
		repo:     repo,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run прогоняет одну сессию SAO между агентами запроса и сохраняет итог.
// Ошибка сохранения возвращается вместе с готовым результатом.
func (s *NegotiationService) Run(ctx context.Context, req RunRequest) (*SessionResult, error) {
	if req.Scenario == nil {
		return nil, ErrNoScenario
	}
	sc := req.Scenario
	if len(req.Agents) != len(sc.Sides) {
		return nil, fmt.Errorf("%w: %d sides, %d agents", ErrAgentCount, len(sc.Sides), len(req.Agents))
	}

	sessionID := uuid.NewString()
	log := s.logger.With(zap.String("session", sessionID), zap.String("scenario", sc.Name))

	mech, err := mechanism.New(sc.Space, mechanism.Options{
		NSteps:              firstPositive(req.Steps, sc.Steps, s.cfg.Steps),
		TimeLimit:           firstPositiveDuration(req.TimeLimit, sc.TimeLimit, s.cfg.TimeLimit),
		NegotiatorTimeLimit: s.cfg.NegotiatorTimeLimit,
		EndOnNoOffer:        s.cfg.EndOnNoOffer,
		Seed:                req.Seed,
		Logger:              log,
	})
	if err != nil {
		return nil, fmt.Errorf("create mechanism: %w", err)
	}

	participants := make([]Participant, len(sc.Sides))
	var adapters []*bridge.Negotiator
	defer func() {
		// после Run это no-op, до Run освобождает партии и профили
		for _, a := range adapters {
			a.Close()
		}
	}()

	for i, side := range sc.Sides {
		neg, kind, err := s.resolve(sc, side, req.Agents[i], req, log)
		if err != nil {
			return nil, fmt.Errorf("side %s: %w", side.Name, err)
		}
		if a, ok := neg.(*bridge.Negotiator); ok {
			adapters = append(adapters, a)
		}
		if err := mech.Add(neg, side.Ufun); err != nil {
			return nil, fmt.Errorf("side %s: %w", side.Name, err)
		}
		participants[i] = Participant{
			Side:         side.Name,
			Agent:        req.Agents[i],
			Kind:         kind,
			NegotiatorID: neg.ID(),
			Reserved:     side.Ufun.ReservedValue(),
		}
	}

	s.recorder.IncSessionsRunning()
	started := time.Now()
	state, runErr := mech.Run(ctx)
	duration := time.Since(started)
	s.recorder.DecSessionsRunning()

	result := &SessionResult{
		ID:           sessionID,
		Scenario:     sc.Name,
		Status:       state.Status(),
		Agreement:    state.Agreement.Clone(),
		Participants: participants,
		Steps:        state.Step,
		ErrorDetails: state.ErrorDetails,
		Duration:     duration,
		Trace:        mech.Trace(),
	}
	for _, a := range adapters {
		for j := range result.Participants {
			if result.Participants[j].NegotiatorID == a.ID() {
				result.Participants[j].Failures = a.Failures()
				result.Participants[j].Dead = a.Dead()
			}
		}
	}
	s.score(result, sc)
	s.recorder.RecordSession(result.Status.String(), result.Steps, duration)

	log.Info("session finished",
		zap.String("status", result.Status.String()),
		zap.Int("steps", result.Steps),
		zap.Stringer("agreement", result.Agreement),
		zap.Float64("welfare", result.Welfare),
		zap.Duration("duration", duration))

	if runErr != nil {
		return result, fmt.Errorf("run session: %w", runErr)
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, result.Record(), result.Trace); err != nil {
			log.Error("save session failed", zap.Error(err))
			return result, fmt.Errorf("save session: %w", err)
		}
	}
	return result, nil
}

func (s *NegotiationService) resolve(sc *config.Scenario, side config.Side, agent string, req RunRequest, log *zap.Logger) (mechanism.Negotiator, string, error) {
	agent = strings.TrimSpace(agent)

	if strings.HasPrefix(agent, "ws://") || strings.HasPrefix(agent, "wss://") {
		opts, err := s.adapterOptions(sc, side, req, log)
		if err != nil {
			return nil, "", err
		}
		return bridge.New(side.Name, bridge.RemoteFactory(agent, log), opts...), KindRemote, nil
	}

	if s.parties != nil {
		info, err := s.parties.Get(agent)
		switch {
		case err == nil:
			if info.Broken {
				return nil, "", fmt.Errorf("%w: %s", ErrPartyIsBroken, info.Name)
			}
			opts, err := s.adapterOptions(sc, side, req, log)
			if err != nil {
				return nil, "", err
			}
			factory := func() geniusweb.Party { return info.Factory(log.Named(info.Name)) }
			return bridge.New(side.Name, factory, opts...), KindParty, nil
		case !errors.Is(err, party.ErrPartyNotFound):
			return nil, "", err
		}
	}

	neg, err := negotiator.New(agent, agent+"-"+uuid.NewString()[:8])
	if err != nil {
		if errors.Is(err, negotiator.ErrUnknownNegotiator) {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
		}
		return nil, "", err
	}
	return neg, KindNative, nil
}

func (s *NegotiationService) adapterOptions(sc *config.Scenario, side config.Side, req RunRequest, log *zap.Logger) ([]bridge.Option, error) {
	opts := append([]bridge.Option(nil), s.cfg.BridgeOptions...)
	opts = append(opts,
		bridge.WithLogger(log),
		bridge.WithObserver(s.recorder),
	)
	if len(req.Parameters) > 0 {
		opts = append(opts, bridge.WithParameters(req.Parameters))
	}
	if s.profiles != nil {
		data, err := s.profiles.Profile(ProfileKey(sc.Name, side.Name), side.Name, side.Ufun)
		if err != nil {
			return nil, err
		}
		opts = append(opts, bridge.WithProfileJSON(data))
	}
	return opts, nil
}

// score считает полезности, welfare, произведение Нэша и расстояние до фронта Парето.
// Без соглашения каждая сторона получает свое reserved value.
func (s *NegotiationService) score(result *SessionResult, sc *config.Scenario) {
	utils := make([]float64, len(sc.Sides))
	nash := 1.0
	for i, side := range sc.Sides {
		reserved := finiteOrZero(side.Ufun.ReservedValue())
		u := reserved
		if result.Agreement != nil {
			u = side.Ufun.Utility(result.Agreement)
		}
		utils[i] = u
		result.Participants[i].Utility = u
		result.Welfare += u
		nash *= math.Max(0, u-reserved)
	}
	if result.Agreement != nil {
		result.Nash = nash
	}

	result.ParetoDistance = math.NaN()
	if len(sc.Sides) == 2 {
		frontier := domain.ParetoFrontier(sc.Sides[0].Ufun, sc.Sides[1].Ufun, sc.Space)
		result.ParetoDistance = domain.ParetoDistance(utils[0], utils[1], frontier)
	}
}

// Record - итог сессии в виде записи хранилища
func (r *SessionResult) Record() *domain.SessionRecord {
	rec := &domain.SessionRecord{
		ID:             r.ID,
		Scenario:       r.Scenario,
		Steps:          r.Steps,
		Status:         r.Status,
		Agreement:      r.Agreement,
		Welfare:        r.Welfare,
		Nash:           r.Nash,
		ParetoDistance: r.ParetoDistance,
		ErrorDetails:   r.ErrorDetails,
		Duration:       r.Duration,
		CreatedAt:      time.Now(),
	}
	for _, p := range r.Participants {
		rec.Participants = append(rec.Participants, p.NegotiatorID)
		rec.Utilities = append(rec.Utilities, p.Utility)
	}
	return rec
}

func (s *NegotiationService) Recent(ctx context.Context, limit int) ([]domain.SessionRecord, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *NegotiationService) Session(ctx context.Context, id string) (*domain.SessionRecord, []domain.TraceEntry, error) {
	if s.repo == nil {
		return nil, nil, ErrNoRepository
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	trace, err := s.repo.Trace(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return rec, trace, nil
}

// Agents - все имена, которые понимает Run, кроме ws:// адресов
func (s *NegotiationService) Agents() []string {
	var names []string
	if s.parties != nil {
		for _, info := range s.parties.Working() {
			names = append(names, info.Name)
		}
	}
	return append(names, negotiator.Names()...)
}

func ProfileKey(scenario, side string) string {
	return scenario + "/" + strings.ToLower(side)
}

func finiteOrZero(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
