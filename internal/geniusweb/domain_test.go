package geniusweb

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomain_JSON(t *testing.T) {
	d := &Domain{
		Name: "mixed",
		IssuesValues: map[string]ValueSet{
			"color": &DiscreteValueSet{Items: []DiscreteValue{"red", "blue"}},
			"qty":   &NumberValueSet{Low: 1, High: 3, Step: 1},
		},
	}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"mixed","issuesValues":{
		"color":{"values":["red","blue"]},
		"qty":{"range":{"low":1,"high":3,"step":1}}}}`, string(data))

	var got Domain
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "mixed", got.Name)
	assert.Equal(t, []string{"color", "qty"}, got.Issues())
	assert.Equal(t, 3, got.IssuesValues["qty"].Size())
	assert.True(t, got.IssuesValues["color"].Contains(DiscreteValue("blue")))
}

func TestDomain_UnmarshalBadRange(t *testing.T) {
	var d Domain
	err := json.Unmarshal([]byte(`{"name":"x","issuesValues":{"q":{"range":{"low":3,"high":1,"step":1}}}}`), &d)
	assert.True(t, errors.Is(err, ErrInvalidRange), "got %v", err)

	err = json.Unmarshal([]byte(`{"name":"x","issuesValues":{"q":{}}}`), &d)
	assert.True(t, errors.Is(err, ErrInvalidValueSet), "got %v", err)
}

func TestDomain_IsFitting(t *testing.T) {
	d := testDomain()

	assert.NoError(t, d.IsFitting(bid("2000", "yes")))
	assert.NoError(t, d.IsFitting(NewBid(map[string]Value{"car": DiscreteValue("no")})))
	assert.ErrorIs(t, d.IsFitting(bid("9999", "yes")), ErrBidNotFitting)
	assert.ErrorIs(t, d.IsFitting(NewBid(map[string]Value{"boat": DiscreteValue("no")})), ErrBidNotFitting)
	assert.ErrorIs(t, d.IsFitting(nil), ErrBidNotFitting)

	assert.True(t, d.IsComplete(bid("2000", "yes")))
	assert.False(t, d.IsComplete(NewBid(map[string]Value{"car": DiscreteValue("no")})))
}

func TestNumberValueSet(t *testing.T) {
	s := &NumberValueSet{Low: 0, High: 1, Step: 0.25}

	assert.Equal(t, 5, s.Size())
	assert.True(t, s.Contains(NumberValue(0.75)))
	assert.False(t, s.Contains(NumberValue(0.8)))
	assert.False(t, s.Contains(NumberValue(1.25)))
	assert.False(t, s.Contains(DiscreteValue("0.5")))
	assert.Equal(t, NumberValue(1), s.Values()[4])
}
