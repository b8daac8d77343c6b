package geniusweb

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBid_JSON(t *testing.T) {
	b := NewBid(map[string]Value{"salary": DiscreteValue("3000"), "hours": NumberValue(37.5)})

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"issuevalues":{"salary":"3000","hours":37.5}}`, string(data))

	var got Bid
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, b.Equal(&got), "got %s", got.String())
	assert.Equal(t, NumberValue(37.5), got.Value("hours"))
}

func TestBid_UnmarshalRejectsObjects(t *testing.T) {
	var b Bid
	err := json.Unmarshal([]byte(`{"issuevalues":{"x":{"y":1}}}`), &b)
	assert.Error(t, err)
}

func TestBid_Equal(t *testing.T) {
	assert.True(t, bid("2000", "no").Equal(bid("2000", "no")))
	assert.False(t, bid("2000", "no").Equal(bid("2000", "yes")))
	assert.False(t, bid("2000", "no").Equal(NewBid(map[string]Value{"salary": DiscreteValue("2000")})))
	assert.False(t, bid("2000", "no").Equal(nil))

	var nilBid *Bid
	assert.True(t, nilBid.Equal(nil))
	assert.True(t, NewBid(map[string]Value{"n": NumberValue(2)}).Equal(NewBid(map[string]Value{"n": DiscreteValue("2")})))
}

func TestBid_String(t *testing.T) {
	assert.Equal(t, "Bid{car=yes, salary=4000}", bid("4000", "yes").String())
}
