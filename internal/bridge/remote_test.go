package bridge

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kitbuilder587/negotiation-bridge/internal/convert"
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

func mustProfileJSON(t *testing.T, space *domain.OutcomeSpace, u *domain.LinearAdditive) []byte {
	t.Helper()
	c, err := convert.NewConverter(space)
	require.NoError(t, err)
	p, err := c.ProfileFromUtility("injected", u)
	require.NoError(t, err)
	data, err := convert.EncodeProfile(p)
	require.NoError(t, err)
	return data
}

func TestRemoteParty(t *testing.T) {
	served := make(chan *testParty, 1)
	server := httptest.NewServer(NewPartyServer(func() geniusweb.Party {
		p := newTestParty(acceptAbove(0.55))
		served <- p
		return p
	}, t.TempDir(), zaptest.NewLogger(t)))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	adapter := New("seller", RemoteFactory(url, zaptest.NewLogger(t)), WithTmpDir(t.TempDir()))
	buyer := newNative("buyer", never, domain.Outcome{"2", "slow"})

	m := setup(t, mechanism.Options{NSteps: 10}, adapter, buyer)
	state, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAgreed, state.Status())
	assert.Equal(t, domain.Outcome{"2", "slow"}, state.Agreement)

	remote := <-served
	require.Eventually(t, func() bool {
		_, _, finished, terminated := remote.snapshot()
		return finished != nil && terminated
	}, 2*time.Second, 10*time.Millisecond)

	assert.NotContains(t, remote.settings.Parameters, ProfileParameter)
	assert.True(t, strings.HasPrefix(remote.settings.ProfileURI, "file:"))
}

func TestRemoteParty_DialFailure(t *testing.T) {
	adapter := New("seller", RemoteFactory("ws://127.0.0.1:1/none", nil),
		WithTmpDir(t.TempDir()),
		WithFailurePolicy(Propagate),
		WithPartyTimeout(200*time.Millisecond),
	)
	buyer := newNative("buyer", never, domain.Outcome{"2", "slow"})

	m := setup(t, mechanism.Options{NSteps: 3}, adapter, buyer)
	state, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, state.HasError)
	assert.Contains(t, state.ErrorDetails, string(FailureNotify))
}
