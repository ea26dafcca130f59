// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frostpath/gauntlet/internal/config"
	"github.com/frostpath/gauntlet/internal/driver"
)

// State is a runner state in the step machine:
// Pending(i) -> Running(i) -> Advanced(i+1) | Failed(i), with terminal
// Completed when every step advances and Aborted on any failure. There is no
// automatic retry across steps; the gameplay scripts are all-or-nothing.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateAdvanced  State = "advanced"
	StateFailed    State = "failed"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// StepOutcome records one executed step for the run report.
type StepOutcome struct {
	Index         int             `json:"index"`
	Name          string          `json:"name"`
	Target        string          `json:"target"`
	Strategy      string          `json:"strategy"`
	Passed        bool            `json:"passed"`
	AssertSkipped string          `json:"assert_skipped,omitempty"`
	Category      driver.Category `json:"category,omitempty"`
	Error         string          `json:"error,omitempty"`
	Elapsed       time.Duration   `json:"elapsed_ns"`
}

// Report is the structured result of one scenario run.
type Report struct {
	RunID      string          `json:"run_id"`
	Scenario   string          `json:"scenario"`
	URL        string          `json:"url"`
	State      State           `json:"state"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	FailedStep int             `json:"failed_step"` // -1 when completed
	// FailedPhase distinguishes a failure of the run's own plumbing
	// ("navigation") from a failure attributed to a step ("step").
	FailedPhase string          `json:"failed_phase,omitempty"`
	Category    driver.Category `json:"category,omitempty"`
	Error      string          `json:"error,omitempty"`
	Steps      []StepOutcome   `json:"steps"`
	Artifacts  []string        `json:"artifacts,omitempty"`
}

// Runner executes a Definition against a page through the driver pipeline.
// The page is owned exclusively by the runner for the duration of a run.
type Runner struct {
	drv          *driver.Driver
	page         driver.Page
	cfg          config.DriverConfig
	artifactsDir string
	logger       *zap.Logger
}

func NewRunner(drv *driver.Driver, page driver.Page, cfg config.DriverConfig, artifactsDir string, logger *zap.Logger) *Runner {
	return &Runner{
		drv:          drv,
		page:         page,
		cfg:          cfg,
		artifactsDir: artifactsDir,
		logger:       logger.Named("runner"),
	}
}

// Run executes the scenario strictly sequentially under a run-level timeout
// that is enforced independently of per-step timeouts, so a chain of steps
// each finishing near its own bound cannot consume unbounded total time.
// Run never returns a nil report; failures are attributed inside it.
func (r *Runner) Run(ctx context.Context, def *Definition) *Report {
	report := &Report{
		RunID:      uuid.NewString(),
		Scenario:   def.Name,
		URL:        def.URL,
		StartedAt:  time.Now(),
		FailedStep: -1,
	}

	runTimeout := time.Duration(def.RunTimeout)
	if runTimeout <= 0 {
		runTimeout = r.cfg.RunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	r.logger.Info("Starting scenario run.",
		zap.String("run_id", report.RunID),
		zap.String("scenario", def.Name),
		zap.Duration("run_timeout", runTimeout))

	if err := r.navigate(runCtx, def.URL); err != nil {
		r.abort(report, "navigation", 0, driver.CategoryReadinessTimeout,
			fmt.Errorf("navigation to %s failed: %w", def.URL, err))
		return report
	}

	state, i := StatePending, 0
	for {
		switch state {
		case StatePending:
			state = StateRunning

		case StateRunning:
			outcome := r.executeStep(runCtx, def.Steps[i], i)
			report.Steps = append(report.Steps, outcome)
			if outcome.Passed {
				state = StateAdvanced
			} else {
				state = StateFailed
			}

		case StateAdvanced:
			i++
			if i == len(def.Steps) {
				state = StateCompleted
			} else {
				state = StatePending
			}

		case StateFailed:
			last := report.Steps[len(report.Steps)-1]
			r.abort(report, "step", last.Index, last.Category, fmt.Errorf("%s", last.Error))
			return report

		case StateCompleted:
			report.State = StateCompleted
			report.FinishedAt = time.Now()
			r.logger.Info("Scenario run completed.",
				zap.String("run_id", report.RunID),
				zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
			return report
		}
	}
}

func (r *Runner) navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout)
	defer cancel()
	return r.page.Navigate(navCtx, url)
}

// executeStep runs one step through the pipeline: wait-ready, baseline (for
// text-change assertions), dispatch, assert. Any failure is attributed to its
// category; later phases never run after an earlier one fails.
func (r *Runner) executeStep(ctx context.Context, step Step, index int) StepOutcome {
	start := time.Now()
	outcome := StepOutcome{
		Index:    index,
		Name:     step.Name,
		Strategy: step.Strategy,
	}

	fail := func(err error) StepOutcome {
		// A run-bound expiry surfaces as the context error of whatever wait
		// was in flight. Name it, rather than blaming the step's own phase.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: run bound exhausted: %v", driver.ErrReadinessTimeout, err)
		}
		outcome.Passed = false
		outcome.Category = driver.CategoryOf(err)
		outcome.Error = err.Error()
		outcome.Elapsed = time.Since(start)
		r.logger.Error("Step failed.",
			zap.Int("step", index),
			zap.String("name", step.Name),
			zap.String("category", string(outcome.Category)),
			zap.Error(err))
		return outcome
	}

	if step.ExpectOnly() {
		assertion, err := step.assertion(r.cfg)
		if err != nil {
			return fail(fmt.Errorf("%w: invalid assertion target: %v", driver.ErrNotFound, err))
		}
		outcome.Target = assertion.Appear.String()
		r.logger.Debug("Executing expectation step.",
			zap.Int("step", index),
			zap.String("name", step.Name),
			zap.String("expect", outcome.Target))
		if err := r.drv.Checker.AssertOutcome(ctx, *assertion, ""); err != nil {
			return fail(err)
		}
		outcome.Passed = true
		outcome.Elapsed = time.Since(start)
		return outcome
	}

	ref, err := step.Target.Reference()
	if err != nil {
		return fail(fmt.Errorf("%w: invalid target: %v", driver.ErrNotFound, err))
	}
	outcome.Target = ref.String()

	readiness, err := step.readiness(r.cfg, index == 0)
	if err != nil {
		return fail(err)
	}
	strategy, err := driver.ParseStrategy(step.Strategy)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", driver.ErrDispatchFailed, err))
	}
	assertion, err := step.assertion(r.cfg)
	if err != nil {
		return fail(fmt.Errorf("%w: invalid assertion target: %v", driver.ErrNotFound, err))
	}

	r.logger.Debug("Executing step.",
		zap.Int("step", index),
		zap.String("name", step.Name),
		zap.Stringer("target", ref),
		zap.String("strategy", step.Strategy))

	handle, err := r.drv.Waiter.WaitReady(ctx, ref, readiness)
	if err != nil {
		return fail(err)
	}

	var baseline string
	if assertion != nil && assertion.TextChange != nil {
		baseline, err = r.drv.Checker.Baseline(ctx, *assertion.TextChange)
		if err != nil {
			return fail(err)
		}
	}

	if err := r.drv.Dispatcher.Dispatch(ctx, handle, strategy); err != nil {
		return fail(err)
	}

	if assertion == nil {
		outcome.AssertSkipped = step.SkipAssertReason
		r.logger.Warn("Step assertion intentionally skipped.",
			zap.Int("step", index),
			zap.String("name", step.Name),
			zap.String("reason", step.SkipAssertReason))
	} else if err := r.drv.Checker.AssertOutcome(ctx, *assertion, baseline); err != nil {
		return fail(err)
	}

	outcome.Passed = true
	outcome.Elapsed = time.Since(start)
	return outcome
}

// abort finalizes the report for a failed run and captures a best-effort
// failure screenshot so the breakage is inspectable after the browser closes.
func (r *Runner) abort(report *Report, phase string, step int, cat driver.Category, err error) {
	report.State = StateAborted
	report.FailedPhase = phase
	report.FailedStep = step
	report.Category = cat
	report.Error = err.Error()
	report.FinishedAt = time.Now()

	if r.artifactsDir != "" {
		path := filepath.Join(r.artifactsDir,
			fmt.Sprintf("%s-step%d-failure.png", sanitize(report.Scenario), step))
		if mkErr := os.MkdirAll(r.artifactsDir, 0o755); mkErr == nil {
			// Detached short context: the run context may already be dead.
			shotCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shotErr := r.page.Screenshot(shotCtx, path); shotErr == nil {
				report.Artifacts = append(report.Artifacts, path)
			} else {
				r.logger.Debug("Failure screenshot unavailable.", zap.Error(shotErr))
			}
		}
	}

	r.logger.Error("Scenario run aborted.",
		zap.String("run_id", report.RunID),
		zap.String("phase", phase),
		zap.Int("failed_step", step),
		zap.String("category", string(cat)),
		zap.Error(err))
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
