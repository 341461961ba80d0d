package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/graff/internal/presentation/tui"
	"github.com/aretw0/graff/pkg/scenario"
	"github.com/aretw0/graff/pkg/session"
)

// Scenario names accepted by RunOptions.
const (
	ScenarioDive    = "dive"
	ScenarioHexagon = "hexagon"
)

// RunOptions configures a scenario run.
type RunOptions struct {
	Scenario string
	Dive     scenario.DiveOptions
	Hexagon  scenario.HexagonOptions
	// Rate caps submitted steps per second; zero submits as fast as replies come.
	Rate float64
	// Quiet suppresses the banner and per-step lines.
	Quiet bool
	Out   io.Writer
}

// BuildPlan returns the plan for opts.Scenario.
func BuildPlan(opts RunOptions) (*scenario.Plan, error) {
	switch opts.Scenario {
	case ScenarioDive:
		return scenario.Dive(opts.Dive)
	case ScenarioHexagon:
		return scenario.Hexagon(opts.Hexagon)
	default:
		return nil, fmt.Errorf("unknown scenario %q", opts.Scenario)
	}
}

// RunScenario submits a scenario to the configured endpoint and saves the
// resulting mirror to storage.
func RunScenario(ctx context.Context, s *Settings, storage *Storage, opts RunOptions) (*scenario.Report, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	plan, err := BuildPlan(opts)
	if err != nil {
		return nil, err
	}

	client, err := s.Dial(storage)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if !opts.Quiet {
		tui.PrintBanner(out)
		fmt.Fprintf(out, ">>> %s: %d variables, %d factors to %s\n",
			opts.Scenario, plan.NumVariables(), plan.NumFactors(), s.Config.Endpoint.Address)
	}

	runOpts := []scenario.RunOption{scenario.WithLogger(s.Logger), scenario.WithRate(opts.Rate)}
	if storage != nil {
		runOpts = append(runOpts, scenario.WithStore(storage.Store))
	}
	if !opts.Quiet {
		runOpts = append(runOpts, scenario.WithProgress(func(done, total int, step scenario.Step, res session.Result) {
			fmt.Fprintf(out, "[%*d/%d] %-16s %s\n", digits(total), done, total, step.Name(), tui.StatusText(out, res.Reply.Status()))
		}))
	}

	rep, err := scenario.Run(ctx, client.Endpoint(), plan, runOpts...)
	if rep != nil && !opts.Quiet {
		fmt.Fprintf(out, ">>> sent %d, confirmed %d, rejected %d, solved %t in %s\n",
			rep.Sent, rep.Confirmed, len(rep.Rejected), rep.Solved, rep.Duration.Round(time.Millisecond))
	}
	return rep, err
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
