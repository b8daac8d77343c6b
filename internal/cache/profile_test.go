package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitbuilder587/negotiation-bridge/internal/cache"
	"github.com/kitbuilder587/negotiation-bridge/internal/cache/memory"
	"github.com/kitbuilder587/negotiation-bridge/internal/convert"
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

type counter struct{ hits, misses int }

func (c *counter) RecordCacheHit()  { c.hits++ }
func (c *counter) RecordCacheMiss() { c.misses++ }

func testUfun(t *testing.T) *domain.LinearAdditive {
	t.Helper()
	space, err := domain.NewOutcomeSpace("fruit",
		domain.NewIssue("kind", "apple", "pear"),
		domain.IntIssue("kg", 3),
	)
	require.NoError(t, err)
	u, err := domain.NewLinearAdditive(space,
		[]float64{0.4, 0.6},
		[]map[string]float64{
			{"apple": 1, "pear": 0.2},
			{"0": 0, "1": 0.5, "2": 1},
		},
		0.3,
	)
	require.NoError(t, err)
	return u
}

func TestProfileCache(t *testing.T) {
	store := memory.New[[]byte]()
	defer store.Stop()
	rec := &counter{}
	pc := cache.NewProfileCache(store, time.Hour, rec)
	u := testUfun(t)

	first, err := pc.Profile("fruit/buyer", "buyer", u)
	require.NoError(t, err)
	second, err := pc.Profile("fruit/buyer", "buyer", u)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)

	profile, err := geniusweb.ParseProfile(first)
	require.NoError(t, err)
	conv, err := convert.NewConverter(u.Space)
	require.NoError(t, err)
	back, err := conv.UtilityFromProfile(profile)
	require.NoError(t, err)
	assert.InDelta(t, u.Utility(domain.Outcome{"apple", "2"}), back.Utility(domain.Outcome{"apple", "2"}), 1e-9)

	pc.Invalidate("fruit/buyer")
	_, err = pc.Profile("fruit/buyer", "buyer", u)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.misses)
}

func TestProfileCache_Errors(t *testing.T) {
	store := memory.New[[]byte]()
	defer store.Stop()
	pc := cache.NewProfileCache(store, time.Hour, nil)

	_, err := pc.Profile("k", "n", nil)
	assert.ErrorIs(t, err, domain.ErrNilUtilityFunction)

	u := testUfun(t)
	mapping := &domain.MappingUtility{Space: u.Space, Table: map[string]float64{}}
	_, err = pc.Profile("m", "n", mapping)
	assert.ErrorIs(t, err, convert.ErrUnsupportedUtility)

	_, ok := store.Get("m")
	assert.False(t, ok, "failed conversions are not cached")
}
