package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/config"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
	"github.com/kitbuilder587/negotiation-bridge/internal/party"
)

const (
	jobsScenario  = "../../scenarios/jobs.yaml"
	tradeScenario = "../../scenarios/trade.yaml"
)

// execute прогоняет rootCmd с чистыми флагами и без базы
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("BRIDGE_TMP_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		resetFlags(c)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    map[string]any
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"number", []string{"e=0.5"}, map[string]any{"e": 0.5}, false},
		{"bool and string", []string{"verbose=true", "mode=fast"}, map[string]any{"verbose": true, "mode": "fast"}, false},
		{"value with equals", []string{"expr=a=b"}, map[string]any{"expr": "a=b"}, false},
		{"missing value", []string{"e"}, nil, true},
		{"missing key", []string{"=1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceConfig(t *testing.T) {
	t.Setenv("NEG_STEPS", "40")
	t.Setenv("NEG_NEGOTIATOR_TIME_LIMIT_MS", "250")
	t.Setenv("NEG_END_ON_NO_OFFER", "1")

	c, err := config.Load()
	require.NoError(t, err)

	sc := serviceConfig(c)
	assert.Equal(t, 40, sc.Steps)
	assert.Equal(t, 250*time.Millisecond, sc.NegotiatorTimeLimit)
	assert.True(t, sc.EndOnNoOffer)
	assert.NotEmpty(t, sc.BridgeOptions)
}

func TestAgentsCmd(t *testing.T) {
	out, err := execute(t, "agents")
	require.NoError(t, err)

	for _, name := range []string{"boulware", "hardliner", "aspiration", "tit-for-tat"} {
		assert.Contains(t, out, name)
	}
}

func TestProfileCmd(t *testing.T) {
	out, err := execute(t, "profile", "--scenario", tradeScenario, "--side", "buyer")
	require.NoError(t, err)

	profile, err := geniusweb.ParseProfile([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	assert.Equal(t, "buyer", profile.Name())
	assert.NotNil(t, profile.ReservationBid())

	_, err = execute(t, "profile", "--scenario", tradeScenario, "--side", "broker")
	assert.Error(t, err)
}

func TestRunCmd_JSON(t *testing.T) {
	out, err := execute(t, "run",
		"--scenario", jobsScenario,
		"--agent", "conceder",
		"--agent", "aspiration",
		"--steps", "30",
		"--param", "e=1.5",
		"--json", "--trace")
	require.NoError(t, err)

	var v resultView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "jobs", v.Scenario)
	assert.Contains(t, []string{"agreed", "timedout", "ended"}, v.Status)
	require.Len(t, v.Participants, 2)
	assert.Equal(t, "party", v.Participants[0].Kind)
	assert.Equal(t, "native", v.Participants[1].Kind)
	assert.NotEmpty(t, v.Trace)
	assert.NotNil(t, v.ParetoDistance)
}

func TestRunCmd_Text(t *testing.T) {
	out, err := execute(t, "run",
		"--scenario", tradeScenario,
		"--agent", "hardliner",
		"--agent", "hardliner",
		"--steps", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "status    timedout")
	assert.Contains(t, out, "agreement none")
	assert.Contains(t, out, "SIDE")
}

func TestRunCmd_Errors(t *testing.T) {
	_, err := execute(t, "run", "--scenario", jobsScenario, "--agent", "boulware")
	assert.Error(t, err)

	_, err = execute(t, "run", "--scenario", "missing.yaml", "--agent", "a", "--agent", "b")
	assert.Error(t, err)

	_, err = execute(t, "run", "--scenario", jobsScenario, "--agent", "boulware", "--agent", "linear", "--param", "oops")
	assert.Error(t, err)
}

func TestSessionsCmd_NoDatabase(t *testing.T) {
	_, err := execute(t, "sessions")
	assert.Error(t, err)
}

func TestServeAndRunRemote(t *testing.T) {
	info, err := party.Default().Get("conceder")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- servePartyOn(ctx, ln, info, serveOptions{TmpDir: t.TempDir()}, zap.NewNop()) }()

	url := "ws://" + ln.Addr().String() + "/party"
	out, err := execute(t, "run",
		"--scenario", jobsScenario,
		"--agent", url,
		"--agent", "time-based-conceding",
		"--steps", "20",
		"--json")
	require.NoError(t, err)

	var v resultView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "remote", v.Participants[0].Kind)
	assert.Zero(t, v.Participants[0].Failures)

	cancel()
	assert.NoError(t, <-done)
}

func TestServe_RateLimitMetrics(t *testing.T) {
	info, err := party.Default().Get("boulware")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- servePartyOn(ctx, ln, info, serveOptions{TmpDir: t.TempDir(), SessionsPerMinute: 1}, zap.NewNop())
	}()

	base := "http://" + ln.Addr().String()
	get := func(path string) (int, string) {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	// без апгрейда до websocket первый запрос проходит лимитер и отбивается Accept
	code, _ := get("/party")
	assert.NotEqual(t, http.StatusTooManyRequests, code)
	code, _ = get("/party")
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, body := get("/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "gwbridge_party_sessions_rejected_total 1")
	assert.Contains(t, body, "gwbridge_parties_live 0")
	assert.Contains(t, body, "go_goroutines")

	cancel()
	assert.NoError(t, <-done)
}
