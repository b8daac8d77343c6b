package bridge

import (
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPartyTimeout = 3 * time.Second
	DefaultMaxFailures  = 3
	inboxSize           = 16
	actionBufferSize    = 8
)

// Observer получает события адаптера; реализуется метриками
type Observer interface {
	PartyStarted()
	PartyStopped()
	PartyFailure(kind string)
	PartyAction(action string, latency time.Duration)
}

type nopObserver struct{}

func (nopObserver) PartyStarted()                     {}
func (nopObserver) PartyStopped()                     {}
func (nopObserver) PartyFailure(string)               {}
func (nopObserver) PartyAction(string, time.Duration) {}

type options struct {
	logger       *zap.Logger
	partyTimeout time.Duration
	policy       FailurePolicy
	maxFailures  int
	tmpDir       string
	parameters   map[string]any
	profileJSON  []byte
	observer     Observer
}

func defaultOptions() options {
	return options{
		logger:       zap.NewNop(),
		partyTimeout: DefaultPartyTimeout,
		policy:       Fallback,
		maxFailures:  DefaultMaxFailures,
		tmpDir:       os.TempDir(),
		observer:     nopObserver{},
	}
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPartyTimeout - сколько ждать действия партии после YourTurn
func WithPartyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.partyTimeout = d
		}
	}
}

func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithMaxFailures - после стольких сбоев подряд партия считается мёртвой; 0 отключает
func WithMaxFailures(n int) Option {
	return func(o *options) { o.maxFailures = n }
}

func WithTmpDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.tmpDir = dir
		}
	}
}

// WithParameters - параметры, которые уйдут партии в Settings
func WithParameters(params map[string]any) Option {
	return func(o *options) { o.parameters = params }
}

// WithProfileJSON - готовый профиль вместо конвертации ufun при Join
func WithProfileJSON(data []byte) Option {
	return func(o *options) { o.profileJSON = data }
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
