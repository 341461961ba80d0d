package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/ports"
	"github.com/aretw0/graff/pkg/session"
	"golang.org/x/time/rate"
)

// Report summarises a run.
type Report struct {
	// Session mirrors every confirmed element.
	Session   *domain.Session
	Sent      int
	Confirmed int
	// Rejected lists the names the backend refused.
	Rejected []string
	Solved   bool
	Duration time.Duration
}

// Progress is called after each step with its 1-based position.
type Progress func(done, total int, step Step, res session.Result)

type runConfig struct {
	logger   *slog.Logger
	progress Progress
	store    ports.SnapshotStore
	limiter  *rate.Limiter
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = logger }
}

// WithProgress registers a per-step callback.
func WithProgress(fn Progress) RunOption {
	return func(c *runConfig) { c.progress = fn }
}

// WithStore saves the mirror under the plan's session name when the run ends,
// including runs cut short by a transport error.
func WithStore(store ports.SnapshotStore) RunOption {
	return func(c *runConfig) { c.store = store }
}

// WithRate paces element submission to perSecond steps, the way a vehicle
// emits measurements as it moves. Zero or less means no pacing.
func WithRate(perSecond float64) RunOption {
	return func(c *runConfig) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// Run registers the robot and session, submits every step and, if the plan
// asks for it, requests a solve. Rejections are recorded and the run goes
// on; transport and decode errors end it.
func Run(ctx context.Context, ep session.Requester, plan *Plan, opts ...RunOption) (rep *Report, err error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	mirror := domain.NewSession(plan.Session)
	rep = &Report{Session: mirror}
	defer func() {
		rep.Duration = time.Since(start)
		if cfg.store == nil {
			return
		}
		if saveErr := cfg.store.Save(context.WithoutCancel(ctx), plan.Session, mirror); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("save session: %w", saveErr))
		}
	}()

	if plan.Mock {
		if _, err := session.ToggleMockMode(ctx, ep, true); err != nil {
			return rep, fmt.Errorf("enable mock mode: %w", err)
		}
	}
	if _, err := session.RegisterRobot(ctx, ep, plan.Robot); err != nil {
		return rep, fmt.Errorf("register robot: %w", err)
	}
	if _, err := session.RegisterSession(ctx, ep, plan.Robot, mirror); err != nil {
		return rep, fmt.Errorf("register session: %w", err)
	}
	cfg.logger.Info("session registered", "robot", plan.Robot.Name(), "session", plan.Session, "steps", len(plan.Steps))

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if cfg.limiter != nil {
			if err := cfg.limiter.Wait(ctx); err != nil {
				return rep, err
			}
		}
		var (
			res     session.Result
			stepErr error
		)
		if step.Variable != nil {
			res, stepErr = session.AddVariable(ctx, ep, mirror, *step.Variable)
		} else {
			res, stepErr = session.AddFactor(ctx, ep, mirror, *step.Factor)
		}
		rep.Sent++
		switch {
		case stepErr == nil:
			rep.Confirmed++
		case errors.Is(stepErr, domain.ErrRejected):
			rep.Rejected = append(rep.Rejected, step.Name())
			cfg.logger.Warn("step rejected", "name", step.Name(), "error", stepErr)
		default:
			return rep, fmt.Errorf("step %d (%s): %w", i+1, step.Name(), stepErr)
		}
		if cfg.progress != nil {
			cfg.progress(i+1, len(plan.Steps), step, res)
		}
	}

	if plan.Solve {
		if _, err := session.RequestSolve(ctx, ep); err != nil {
			return rep, fmt.Errorf("request solve: %w", err)
		}
		rep.Solved = true
	}
	cfg.logger.Info("run finished", "confirmed", rep.Confirmed, "rejected", len(rep.Rejected))
	return rep, nil
}
