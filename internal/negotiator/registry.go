package negotiator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

var ErrUnknownNegotiator = errors.New("unknown negotiator")

// Factory создаёт переговорщика с заданным ID
type Factory func(id string) mechanism.Negotiator

var builtin = map[string]Factory{
	"aspiration":           func(id string) mechanism.Negotiator { return NewAspiration(id) },
	"time-based-conceding": func(id string) mechanism.Negotiator { return NewTimeBasedConceding(id) },
	"time-based":           func(id string) mechanism.Negotiator { return NewTimeBased(id) },
	"adaptive":             func(id string) mechanism.Negotiator { return NewAdaptive(id) },
	"micro":                func(id string) mechanism.Negotiator { return NewMicro(id) },
	"tit-for-tat":          func(id string) mechanism.Negotiator { return NewTitForTat(id) },
	"frequency-floor":      func(id string) mechanism.Negotiator { return NewFrequencyFloor(id) },
}

func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Factory, error) {
	f, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNegotiator, name)
	}
	return f, nil
}

// New - переговорщик по имени из каталога
func New(name, id string) (mechanism.Negotiator, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f(id), nil
}
