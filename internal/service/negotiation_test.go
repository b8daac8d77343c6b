package service

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/kitbuilder587/negotiation-bridge/internal/bridge"
	"github.com/kitbuilder587/negotiation-bridge/internal/cache"
	"github.com/kitbuilder587/negotiation-bridge/internal/cache/memory"
	"github.com/kitbuilder587/negotiation-bridge/internal/config"
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
	"github.com/kitbuilder587/negotiation-bridge/internal/metrics"
	"github.com/kitbuilder587/negotiation-bridge/internal/party"
	"github.com/kitbuilder587/negotiation-bridge/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// обе стороны хотят одного и того же
const sharedScenario = `
name: shared
steps: 10
issues:
  - name: x
    count: 5
sides:
  - name: a
    reserved: 0.3
    weights: {x: 1}
    values: {x: {type: linear, slope: 0.25}}
  - name: b
    reserved: 0.3
    weights: {x: 1}
    values: {x: {type: linear, slope: 0.25}}
`

const conflictScenario = `
name: conflict
steps: 10
issues:
  - name: x
    count: 5
sides:
  - name: seller
    reserved: 0.2
    weights: {x: 1}
    values: {x: {type: linear, slope: 0.25}}
  - name: buyer
    reserved: 0.1
    weights: {x: 1}
    values: {x: {type: affine, slope: -0.25, bias: 1}}
`

type fixture struct {
	svc     *NegotiationService
	repo    *repository.MockSessionRepository
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, parties *party.Registry) *fixture {
	t.Helper()
	store := memory.New[[]byte]()
	t.Cleanup(store.Stop)

	m := metrics.New(prometheus.NewRegistry())
	repo := repository.NewMockSessionRepository()
	cfg := Config{
		Steps:         20,
		BridgeOptions: []bridge.Option{bridge.WithTmpDir(t.TempDir()), bridge.WithPartyTimeout(time.Second)},
	}
	svc := NewNegotiationService(parties, cache.NewProfileCache(store, time.Hour, m), repo, m, cfg, zaptest.NewLogger(t))
	return &fixture{svc: svc, repo: repo, metrics: m}
}

func scenario(t *testing.T, yaml string) *config.Scenario {
	t.Helper()
	sc, err := config.ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return sc
}

func TestRun_SharedInterestAgrees(t *testing.T) {
	tests := []struct {
		name   string
		agents []string
		kinds  []string
	}{
		{"party vs party", []string{"boulware", "conceder"}, []string{KindParty, KindParty}},
		{"party vs native", []string{"linear", "aspiration"}, []string{KindParty, KindNative}},
		{"native vs party", []string{"time-based", "boulware"}, []string{KindNative, KindParty}},
		{"native vs native", []string{"aspiration", "micro"}, []string{KindNative, KindNative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, party.Default())

			res, err := f.svc.Run(context.Background(), RunRequest{
				Scenario: scenario(t, sharedScenario),
				Agents:   tt.agents,
			})
			require.NoError(t, err)

			assert.Equal(t, domain.StatusAgreed, res.Status)
			assert.Equal(t, domain.Outcome{"4"}, res.Agreement)
			assert.InDelta(t, 2.0, res.Welfare, 1e-9)
			assert.InDelta(t, 0.49, res.Nash, 1e-9)
			assert.InDelta(t, 0.0, res.ParetoDistance, 1e-9)
			require.Len(t, res.Participants, 2)
			for i, p := range res.Participants {
				assert.Equal(t, tt.kinds[i], p.Kind)
				assert.InDelta(t, 1.0, p.Utility, 1e-9)
				assert.Zero(t, p.Failures)
			}
			assert.NotEmpty(t, res.Trace)

			rec, trace, err := f.svc.Session(context.Background(), res.ID)
			require.NoError(t, err)
			assert.Equal(t, "shared", rec.Scenario)
			assert.Equal(t, []string{res.Participants[0].NegotiatorID, res.Participants[1].NegotiatorID}, rec.Participants)
			assert.Len(t, trace, len(res.Trace))

			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsTotal.WithLabelValues("agreed")))
			assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.SessionsRunning))
			assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.PartiesLive))
		})
	}
}

func TestRun_HardlinersTimeOut(t *testing.T) {
	f := newFixture(t, party.Default())

	res, err := f.svc.Run(context.Background(), RunRequest{
		Scenario: scenario(t, conflictScenario),
		Agents:   []string{"hardliner", "hardliner"},
		Steps:    6,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusTimedOut, res.Status)
	assert.Nil(t, res.Agreement)
	// без соглашения каждая сторона получает reserved value
	assert.InDelta(t, 0.3, res.Welfare, 1e-9)
	assert.Zero(t, res.Nash)
	assert.InDelta(t, 0.2, res.Participants[0].Utility, 1e-9)
	assert.InDelta(t, 0.1, res.Participants[1].Utility, 1e-9)
	assert.False(t, math.IsNaN(res.ParetoDistance))
	assert.Greater(t, res.ParetoDistance, 0.0)

	// второй прогон того же сценария берет профили из кеша
	_, err = f.svc.Run(context.Background(), RunRequest{
		Scenario: scenario(t, conflictScenario),
		Agents:   []string{"hardliner", "hardliner"},
		Steps:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CacheMissesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CacheHitsTotal))

	recent, err := f.svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRun_RemoteParty(t *testing.T) {
	server := httptest.NewServer(bridge.NewPartyServer(func() geniusweb.Party {
		return party.NewConceder(zap.NewNop())
	}, t.TempDir(), zaptest.NewLogger(t)))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	f := newFixture(t, party.Default())
	res, err := f.svc.Run(context.Background(), RunRequest{
		Scenario: scenario(t, sharedScenario),
		Agents:   []string{url, "aspiration"},
	})
	require.NoError(t, err)

	assert.Equal(t, KindRemote, res.Participants[0].Kind)
	assert.Equal(t, domain.StatusAgreed, res.Status)
	assert.Equal(t, domain.Outcome{"4"}, res.Agreement)
}

func TestRun_Errors(t *testing.T) {
	broken := party.NewRegistry()
	require.NoError(t, broken.Register(party.Info{
		Name:    "flaky",
		Factory: func(l *zap.Logger) geniusweb.Party { return party.NewStupid(l) },
		Broken:  true,
	}))

	tests := []struct {
		name    string
		parties *party.Registry
		req     func(t *testing.T) RunRequest
		wantErr error
	}{
		{
			name:    "no scenario",
			parties: party.Default(),
			req:     func(t *testing.T) RunRequest { return RunRequest{Agents: []string{"boulware", "linear"}} },
			wantErr: ErrNoScenario,
		},
		{
			name:    "agent count",
			parties: party.Default(),
			req: func(t *testing.T) RunRequest {
				return RunRequest{Scenario: scenario(t, sharedScenario), Agents: []string{"boulware"}}
			},
			wantErr: ErrAgentCount,
		},
		{
			name:    "unknown agent",
			parties: party.Default(),
			req: func(t *testing.T) RunRequest {
				return RunRequest{Scenario: scenario(t, sharedScenario), Agents: []string{"boulware", "oracle"}}
			},
			wantErr: ErrUnknownAgent,
		},
		{
			name:    "broken party",
			parties: broken,
			req: func(t *testing.T) RunRequest {
				return RunRequest{Scenario: scenario(t, sharedScenario), Agents: []string{"aspiration", "flaky"}}
			},
			wantErr: ErrPartyIsBroken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.parties)
			res, err := f.svc.Run(context.Background(), tt.req(t))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)

			recent, _ := f.repo.ListRecent(context.Background(), 0)
			assert.Empty(t, recent)
		})
	}
}

type failingRepo struct {
	*repository.MockSessionRepository
}

var errDiskFull = errors.New("disk full")

func (failingRepo) Save(context.Context, *domain.SessionRecord, []domain.TraceEntry) error {
	return errDiskFull
}

func TestRun_SaveFailureKeepsResult(t *testing.T) {
	store := memory.New[[]byte]()
	defer store.Stop()
	svc := NewNegotiationService(party.Default(), cache.NewProfileCache(store, time.Hour, nil),
		failingRepo{repository.NewMockSessionRepository()}, nil, Config{Steps: 5}, nil)

	res, err := svc.Run(context.Background(), RunRequest{
		Scenario: scenario(t, sharedScenario),
		Agents:   []string{"aspiration", "micro"},
	})
	assert.ErrorIs(t, err, errDiskFull)
	require.NotNil(t, res)
	assert.Equal(t, domain.StatusAgreed, res.Status)
}

func TestRun_ContextCancelled(t *testing.T) {
	f := newFixture(t, party.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Run(ctx, RunRequest{
		Scenario: scenario(t, conflictScenario),
		Agents:   []string{"hardliner", "aspiration"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, domain.StatusError, res.Status)

	recent, _ := f.repo.ListRecent(context.Background(), 0)
	assert.Empty(t, recent, "cancelled sessions are not persisted")
}

func TestNoRepository(t *testing.T) {
	svc := NewNegotiationService(party.Default(), nil, nil, nil, Config{Steps: 5}, nil)

	_, err := svc.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoRepository)
	_, _, err = svc.Session(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoRepository)

	// без кеша профиль строит сам адаптер
	res, err := svc.Run(context.Background(), RunRequest{
		Scenario: scenario(t, sharedScenario),
		Agents:   []string{"conceder", "linear"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgreed, res.Status)
}

func TestAgents(t *testing.T) {
	svc := NewNegotiationService(party.Default(), nil, nil, nil, Config{}, nil)
	agents := svc.Agents()

	assert.Contains(t, agents, "boulware")
	assert.Contains(t, agents, "frequency-floor")
	assert.Equal(t, "shared/buyer", ProfileKey("shared", "Buyer"))
}
