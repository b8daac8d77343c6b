package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kitbuilder587/negotiation-bridge/internal/config"
	"github.com/kitbuilder587/negotiation-bridge/internal/service"
)

var (
	runScenario  string
	runAgents    []string
	runSteps     int
	runTimeLimit time.Duration
	runSeed      int64
	runParams    []string
	runJSON      bool
	runTrace     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one negotiation session",
	Long: `Runs one SAO session on a scenario. Pass one --agent per scenario side,
in the order the sides appear in the file. An agent is a party name from
"gwbridge agents", a native negotiator name, or a ws:// URL of a party server.

Example:
  gwbridge run --scenario scenarios/jobs.yaml --agent boulware --agent aspiration`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "scenario YAML file")
	runCmd.Flags().StringArrayVar(&runAgents, "agent", nil, "agent for the next scenario side (repeatable)")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "number of rounds (overrides scenario and NEG_STEPS)")
	runCmd.Flags().DurationVar(&runTimeLimit, "time-limit", 0, "wall clock limit (overrides scenario and NEG_TIME_LIMIT_SEC)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "mechanism random seed")
	runCmd.Flags().StringArrayVar(&runParams, "param", nil, "party parameter key=value passed in Settings (repeatable)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "include the action trace")
	_ = runCmd.MarkFlagRequired("scenario")
}

func runSession(cmd *cobra.Command, args []string) error {
	sc, err := config.LoadScenario(runScenario)
	if err != nil {
		return err
	}
	params, err := parseParams(runParams)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	a.serveMetrics(cfg.Metrics.Addr, logger)

	res, runErr := a.svc.Run(cmd.Context(), service.RunRequest{
		Scenario:   sc,
		Agents:     runAgents,
		Steps:      runSteps,
		TimeLimit:  runTimeLimit,
		Seed:       runSeed,
		Parameters: params,
	})
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if runJSON {
		err = writeResultJSON(out, res, runTrace)
	} else {
		err = writeResultText(out, res, runTrace)
	}
	if err != nil {
		return err
	}
	return runErr
}

// parseParams - числа становятся float64, true/false - bool, остальное строкой
func parseParams(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad --param %q, want key=value", kv)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			params[key] = b
		} else {
			params[key] = value
		}
	}
	return params, nil
}

type participantView struct {
	Side       string  `json:"side"`
	Agent      string  `json:"agent"`
	Kind       string  `json:"kind"`
	Negotiator string  `json:"negotiator"`
	Utility    float64 `json:"utility"`
	Failures   int     `json:"failures,omitempty"`
	Dead       bool    `json:"dead,omitempty"`
}

type traceView struct {
	Step         int      `json:"step"`
	Negotiator   string   `json:"negotiator"`
	Action       string   `json:"action"`
	Outcome      []string `json:"outcome,omitempty"`
	RelativeTime float64  `json:"relative_time"`
}

type resultView struct {
	ID             string            `json:"id"`
	Scenario       string            `json:"scenario"`
	Status         string            `json:"status"`
	Agreement      []string          `json:"agreement"`
	Steps          int               `json:"steps"`
	Welfare        float64           `json:"welfare"`
	Nash           float64           `json:"nash"`
	ParetoDistance *float64          `json:"pareto_distance"`
	DurationMS     int64             `json:"duration_ms"`
	Error          string            `json:"error,omitempty"`
	Participants   []participantView `json:"participants"`
	Trace          []traceView       `json:"trace,omitempty"`
}

func writeResultJSON(w io.Writer, res *service.SessionResult, withTrace bool) error {
	v := resultView{
		ID:         res.ID,
		Scenario:   res.Scenario,
		Status:     res.Status.String(),
		Agreement:  res.Agreement,
		Steps:      res.Steps,
		Welfare:    res.Welfare,
		Nash:       res.Nash,
		DurationMS: res.Duration.Milliseconds(),
		Error:      res.ErrorDetails,
	}
	// NaN в JSON не кодируется
	if !math.IsNaN(res.ParetoDistance) {
		d := res.ParetoDistance
		v.ParetoDistance = &d
	}
	for _, p := range res.Participants {
		v.Participants = append(v.Participants, participantView{
			Side:       p.Side,
			Agent:      p.Agent,
			Kind:       p.Kind,
			Negotiator: p.NegotiatorID,
			Utility:    p.Utility,
			Failures:   p.Failures,
			Dead:       p.Dead,
		})
	}
	if withTrace {
		for _, e := range res.Trace {
			v.Trace = append(v.Trace, traceView{
				Step:         e.Step,
				Negotiator:   e.Negotiator,
				Action:       string(e.Action),
				Outcome:      e.Outcome,
				RelativeTime: e.RelativeTime,
			})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResultText(w io.Writer, res *service.SessionResult, withTrace bool) error {
	fmt.Fprintf(w, "session   %s\n", res.ID)
	fmt.Fprintf(w, "scenario  %s\n", res.Scenario)
	fmt.Fprintf(w, "status    %s after %d steps (%s)\n", res.Status, res.Steps, res.Duration.Round(time.Millisecond))
	if res.Agreement != nil {
		fmt.Fprintf(w, "agreement %s\n", res.Agreement)
	} else {
		fmt.Fprintln(w, "agreement none")
	}
	if res.ErrorDetails != "" {
		fmt.Fprintf(w, "error     %s\n", res.ErrorDetails)
	}
	fmt.Fprintf(w, "welfare   %.4f  nash %.4f  pareto distance %.4f\n\n", res.Welfare, res.Nash, res.ParetoDistance)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SIDE\tAGENT\tKIND\tUTILITY\tFAILURES")
	for _, p := range res.Participants {
		agent := p.Agent
		if p.Dead {
			agent += " (dead)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%d\n", p.Side, agent, p.Kind, p.Utility, p.Failures)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !withTrace {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tT\tNEGOTIATOR\tACTION\tOUTCOME")
	for _, e := range res.Trace {
		outcome := "-"
		if e.Outcome != nil {
			outcome = e.Outcome.String()
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%s\t%s\t%s\n", e.Step, e.RelativeTime, e.Negotiator, e.Action, outcome)
	}
	return tw.Flush()
}
