package geniusweb

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearAdditiveUtilitySpace_Utility(t *testing.T) {
	p := testProfile()

	tests := []struct {
		bid  *Bid
		want float64
	}{
		{bid("4000", "yes"), 1},
		{bid("2000", "no"), 0},
		{bid("3000", "yes"), 0.625},
		{NewBid(map[string]Value{"car": DiscreteValue("yes")}), 0.25},
		{nil, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, p.Utility(tt.bid), 1e-9, "bid %s", tt.bid)
	}
}

func TestNumberValueSetUtilities(t *testing.T) {
	u := &NumberValueSetUtilities{LowValue: 10, LowUtility: 0, HighValue: 20, HighUtility: 1}

	assert.InDelta(t, 0.5, u.Utility(NumberValue(15)), 1e-9)
	assert.InDelta(t, 1, u.Utility(NumberValue(20)), 1e-9)
	assert.Equal(t, 0.0, u.Utility(NumberValue(25)))
	assert.Equal(t, 0.0, u.Utility(DiscreteValue("15")))
}

func TestProfile_JSONRoundtrip(t *testing.T) {
	p := testProfile()

	data, err := json.Marshal(p)
	require.NoError(t, err)

	name, _, err := unwrap(data)
	require.NoError(t, err)
	assert.Equal(t, "LinearAdditiveUtilitySpace", name)

	got, err := ParseProfile(data)
	require.NoError(t, err)
	assert.Equal(t, "jobs-employee", got.Name())
	assert.True(t, p.ReservationBid().Equal(got.ReservationBid()))
	for _, b := range []*Bid{bid("2000", "yes"), bid("3000", "no"), bid("4000", "yes")} {
		assert.InDelta(t, p.Utility(b), got.Utility(b), 1e-9)
	}
}

func TestParseProfile_Errors(t *testing.T) {
	_, err := ParseProfile([]byte(`{"SumOfGroupsUtilitySpace":{}}`))
	assert.True(t, errors.Is(err, ErrUnsupportedProfile))

	_, err = ParseProfile([]byte(`{"LinearAdditiveUtilitySpace":{"name":"x"}}`))
	assert.Error(t, err)

	_, err = ParseProfile([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrNotWrapped))
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")

	data, err := json.Marshal(testProfile())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	uri := ProfileURI(path)
	assert.Contains(t, uri, "file:")

	p, err := LoadProfile(uri)
	require.NoError(t, err)
	assert.Equal(t, "jobs", p.Domain().Name)

	_, err = LoadProfile("http://example.com/profile.json")
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))

	_, err = LoadProfile(ProfileURI(filepath.Join(dir, "missing.json")))
	assert.Error(t, err)
}

func TestBidSpace(t *testing.T) {
	bs, err := NewBidSpace(testProfile())
	require.NoError(t, err)

	assert.Equal(t, 6, bs.Size())

	best, u := bs.Max()
	assert.True(t, best.Equal(bid("4000", "yes")))
	assert.InDelta(t, 1, u, 1e-9)

	worst, u := bs.Min()
	assert.True(t, worst.Equal(bid("2000", "no")))
	assert.InDelta(t, 0, u, 1e-9)

	window := bs.Between(0.5, 0.8)
	require.Len(t, window, 2)
	p := testProfile()
	for _, b := range window {
		v := p.Utility(b)
		assert.True(t, v >= 0.5 && v <= 0.8, "utility %v", v)
	}

	closest := bs.Closest(0.7)
	assert.InDelta(t, 0.75, p.Utility(closest), 1e-9)
	assert.True(t, math.Abs(p.Utility(bs.Closest(2))-1) < 1e-9)
}

func TestBidSpace_Tolerance(t *testing.T) {
	bs, err := NewBidSpace(testProfile())
	require.NoError(t, err)
	assert.InDelta(t, 0.125, bs.Tolerance(), 1e-9)
}
