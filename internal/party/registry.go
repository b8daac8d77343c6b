package party

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

var (
	ErrPartyNotFound  = errors.New("party not found")
	ErrDuplicateParty = errors.New("party already registered")
	ErrInvalidInfo    = errors.New("party info needs a name and a factory")
)

// Info - запись каталога
type Info struct {
	Name        string
	Group       string
	Description string
	Factory     func(logger *zap.Logger) geniusweb.Party
	// Broken - партия известна, но не проходит протокол; Working её пропускает
	Broken bool
}

type Registry struct {
	mu    sync.RWMutex
	items map[string]Info
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Info)}
}

func (r *Registry) Register(info Info) error {
	name := strings.ToLower(strings.TrimSpace(info.Name))
	if name == "" || info.Factory == nil {
		return ErrInvalidInfo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateParty, name)
	}
	info.Name = name
	r.items[name] = info
	return nil
}

func (r *Registry) Get(name string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.items[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrPartyNotFound, name)
	}
	return info, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) All() []Info {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		out = append(out, r.items[name])
	}
	return out
}

func (r *Registry) Working() []Info {
	var out []Info
	for _, info := range r.All() {
		if !info.Broken {
			out = append(out, info)
		}
	}
	return out
}

// Default - каталог со встроенными партиями
func Default() *Registry {
	r := NewRegistry()
	builtin := []Info{
		{Name: "boulware", Group: "time-dependent", Description: "concedes late (e=0.2)",
			Factory: func(l *zap.Logger) geniusweb.Party { return NewBoulware(l) }},
		{Name: "conceder", Group: "time-dependent", Description: "concedes early (e=2)",
			Factory: func(l *zap.Logger) geniusweb.Party { return NewConceder(l) }},
		{Name: "linear", Group: "time-dependent", Description: "concedes linearly (e=1)",
			Factory: func(l *zap.Logger) geniusweb.Party { return NewLinear(l) }},
		{Name: "hardliner", Group: "time-dependent", Description: "never concedes (e=0)",
			Factory: func(l *zap.Logger) geniusweb.Party { return NewHardliner(l) }},
		{Name: "random", Group: "reference", Description: "random bids, accepts utility above 0.6",
			Factory: func(l *zap.Logger) geniusweb.Party { return NewRandom(l) }},
		{Name: "stupid", Group: "reference", Description: "random bids, never accepts",
			Factory: func(l *zap.Logger) geniusweb.Party { return NewStupid(l) }},
	}
	for _, info := range builtin {
		if err := r.Register(info); err != nil {
			panic(err)
		}
	}
	return r
}
