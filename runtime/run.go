// Package runtime executes pipeline plans: it walks the ordered stage
// closure of a target, skips stages with completion markers, launches the
// rest through an Invoker, and records a marker after each success.
//
// Execution is strictly sequential. A failure aborts the run immediately;
// markers of stages that already succeeded are kept, so a corrected rerun
// resumes at the failed stage.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/genoa/evidence"
	"github.com/pithecene-io/genoa/graph"
	"github.com/pithecene-io/genoa/log"
	"github.com/pithecene-io/genoa/marker"
	"github.com/pithecene-io/genoa/metrics"
	"github.com/pithecene-io/genoa/settings"
	"github.com/pithecene-io/genoa/stage"
	"github.com/pithecene-io/genoa/types"
)

// RunConfig configures an Orchestrator.
type RunConfig struct {
	// Resolved is the validated configuration (required).
	Resolved *settings.Resolved
	// Markers is the completion marker store (required).
	Markers marker.Store
	// Invoker launches stage actions. If nil, a ProcessInvoker for the
	// configured sandbox runtime is used.
	Invoker Invoker
	// RunMeta is the run identity (required).
	RunMeta *types.RunMeta
	// Logger receives run events. If nil, a nop logger is used.
	Logger *log.Logger
	// Collector records per-run counters. If nil, nothing is recorded
	// (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Now is the clock (default time.Now).
	Now func() time.Time
}

// StageResult is the outcome of one stage within a run or plan.
type StageResult struct {
	Name   string
	Status types.StageStatus
	// Needs are the effective predecessors under the active configuration.
	Needs []string
	// Command is the argv that runs (or would run) the stage.
	Command  []string
	ExitCode int
	Duration time.Duration
	LogPath  string
	// Error is the failure message for failed stages.
	Error string
}

// RunResult represents the result of a run.
type RunResult struct {
	RunMeta *types.RunMeta
	// Target is the resolved stage name ("all" is resolved to the terminal stage).
	Target   string
	Mode     evidence.Mode
	Outcome  types.OutcomeStatus
	Stages   []StageResult
	Duration time.Duration
	// Err is the error that ended the run, nil on success.
	Err error
}

// Counts returns how many stages ran (succeeded or failed) and how many
// were skipped.
func (r *RunResult) Counts() (ran, skipped int) {
	for _, s := range r.Stages {
		switch s.Status {
		case types.StageSucceeded, types.StageFailed:
			ran++
		case types.StageSkipped:
			skipped++
		}
	}
	return ran, skipped
}

// FailedStage returns the name of the failed stage, if any.
func (r *RunResult) FailedStage() string {
	for _, s := range r.Stages {
		if s.Status == types.StageFailed {
			return s.Name
		}
	}
	return types.FailedStage(r.Err)
}

// Orchestrator runs targets against one resolved configuration.
type Orchestrator struct {
	config *RunConfig
	graph  *graph.Graph
	logger *log.Logger
}

// NewOrchestrator validates config and builds the applicable stage graph.
func NewOrchestrator(config *RunConfig) (*Orchestrator, error) {
	if config.Resolved == nil {
		return nil, errors.New("resolved settings are required")
	}
	if config.Markers == nil {
		return nil, errors.New("marker store is required")
	}
	if config.RunMeta == nil {
		return nil, errors.New("run metadata is required")
	}
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}

	g, err := BuildGraph(config.Resolved)
	if err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Invoker == nil {
		cfg.Invoker = NewProcessInvoker(cfg.Resolved.SandboxRuntime, nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{config: &cfg, graph: g, logger: logger}, nil
}

// BuildGraph builds the stage graph restricted to stages applicable under res.
func BuildGraph(res *settings.Resolved) (*graph.Graph, error) {
	catalog := stage.Catalog()
	nodes := make([]graph.Node, len(catalog))
	applicable := make(map[string]bool, len(catalog))
	for i, s := range catalog {
		nodes[i] = graph.Node{Name: s.Name, Needs: s.Needs}
		applicable[s.Name] = s.Applicable(res)
	}
	return graph.New(nodes, func(name string) bool { return applicable[name] })
}

// ResolveTarget maps "all" (or "") to the terminal stage and rejects
// unknown or inapplicable stages with a *types.ConfigurationError.
func ResolveTarget(res *settings.Resolved, target string) (string, error) {
	if target == "" || target == types.TargetAll {
		return types.TerminalStage, nil
	}
	s, ok := stage.Lookup(target)
	if !ok {
		return "", types.Configf("target", "unknown stage %q (run `genoa stages` to list them)", target)
	}
	if !s.Applicable(res) {
		return "", types.Configf("target", "stage %q does not apply with evidence %s", target, res.Evidence)
	}
	return s.Name, nil
}

// Plan returns the ordered closure of target with each stage's marker
// state and constructed command. Nothing is executed.
func (o *Orchestrator) Plan(ctx context.Context, target string) (*RunResult, error) {
	name, order, err := o.order(target)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunMeta: o.config.RunMeta,
		Target:  name,
		Mode:    o.config.Resolved.Mode,
		Outcome: types.OutcomeSuccess,
	}
	for _, s := range order {
		done, err := o.config.Markers.Done(ctx, s.Name)
		if err != nil {
			return nil, err
		}
		sr := o.stageResult(s)
		sr.Status = types.StagePending
		if done {
			sr.Status = types.StageSkipped
		}
		result.Stages = append(result.Stages, sr)
	}
	return result, nil
}

func (o *Orchestrator) order(target string) (string, []stage.Stage, error) {
	name, err := ResolveTarget(o.config.Resolved, target)
	if err != nil {
		return "", nil, err
	}
	names, err := o.graph.Plan(name)
	if err != nil {
		return "", nil, err
	}
	order := make([]stage.Stage, len(names))
	for i, n := range names {
		s, ok := stage.Lookup(n)
		if !ok {
			return "", nil, &types.DependencyError{Stage: n, Msg: "planned stage is missing from the catalog"}
		}
		order[i] = s
	}
	return name, order, nil
}

func (o *Orchestrator) stageResult(s stage.Stage) StageResult {
	inv := s.Invocation(o.config.Resolved)
	return StageResult{
		Name:    s.Name,
		Needs:   o.graph.Needs(s.Name),
		Command: SandboxCommand(o.config.Resolved.SandboxRuntime, inv),
		LogPath: o.config.Resolved.Paths.LogPath(s.Name),
	}
}

// Run executes target: every unsatisfied stage of its closure, in order.
// The returned result is never nil; its Err mirrors the returned error.
func (o *Orchestrator) Run(ctx context.Context, target string) (*RunResult, error) {
	start := o.config.Now()
	res := o.config.Resolved
	result := &RunResult{
		RunMeta: o.config.RunMeta,
		Target:  target,
		Mode:    res.Mode,
	}
	finish := func(err error) (*RunResult, error) {
		result.Duration = o.config.Now().Sub(start)
		result.Err = err
		result.Outcome = types.OutcomeForError(err)
		return result, err
	}

	name, order, err := o.order(target)
	if err != nil {
		return finish(err)
	}
	result.Target = name
	o.config.Collector.AddStagesPlanned(len(order))

	o.logger.Info("starting run", map[string]any{
		"mode":    res.Mode,
		"plan":    stageNames(order),
		"sandbox": res.SandboxRuntime,
		"markers": o.config.Markers.Location(),
	})

	for i, s := range order {
		sr := o.stageResult(s)

		done, err := o.config.Markers.Done(ctx, s.Name)
		if err != nil {
			return finish(fmt.Errorf("check marker for %s: %w", s.Name, err))
		}
		if done {
			sr.Status = types.StageSkipped
			result.Stages = append(result.Stages, sr)
			o.config.Collector.IncStageSkipped()
			o.logger.Info("stage skipped", map[string]any{"stage": s.Name, "reason": "marker present"})
			continue
		}

		if err := o.checkPredecessors(ctx, s.Name); err != nil {
			sr.Status = types.StageFailed
			sr.Error = err.Error()
			result.Stages = append(result.Stages, sr)
			o.logger.Error("dependency check failed", map[string]any{"stage": s.Name, "error": err.Error()})
			return finish(err)
		}

		err = o.execute(ctx, s, &sr)
		result.Stages = append(result.Stages, sr)
		if err != nil {
			for _, rest := range order[i+1:] {
				pending := o.stageResult(rest)
				pending.Status = types.StagePending
				result.Stages = append(result.Stages, pending)
			}
			return finish(err)
		}
	}

	o.logger.Info("run completed", map[string]any{
		"target":   name,
		"duration": o.config.Now().Sub(start).String(),
	})
	return finish(nil)
}

// checkPredecessors re-verifies that every effective predecessor of name
// is satisfied. A miss means the plan order is broken.
func (o *Orchestrator) checkPredecessors(ctx context.Context, name string) error {
	for _, need := range o.graph.Needs(name) {
		done, err := o.config.Markers.Done(ctx, need)
		if err != nil {
			return fmt.Errorf("check marker for %s: %w", need, err)
		}
		if !done {
			return &types.DependencyError{Stage: name, Predecessor: need}
		}
	}
	return nil
}

// execute invokes one stage and records its marker on success.
func (o *Orchestrator) execute(ctx context.Context, s stage.Stage, sr *StageResult) error {
	inv := s.Invocation(o.config.Resolved)
	o.config.Collector.IncStageStarted()
	o.logger.Info("stage started", map[string]any{
		"stage":   s.Name,
		"command": sr.Command,
		"log":     sr.LogPath,
	})

	invRes, err := o.config.Invoker.Invoke(ctx, inv, sr.LogPath)
	if invRes != nil {
		sr.ExitCode = invRes.ExitCode
		sr.Duration = invRes.Duration
	}
	if err != nil {
		sr.Status = types.StageFailed
		sr.Error = err.Error()
		o.config.Collector.IncStageFailed()
		if errors.Is(err, types.ErrEnvironment) {
			o.config.Collector.IncToolLaunchFailure()
		}
		o.logger.Error("stage failed", map[string]any{
			"stage":     s.Name,
			"exit_code": sr.ExitCode,
			"log":       sr.LogPath,
			"error":     err.Error(),
		})
		if types.FailedStage(err) == "" {
			err = &types.StageError{Stage: s.Name, Err: err}
		}
		return err
	}

	rec := marker.NewRecord(s.Name, o.config.RunMeta.RunID, string(o.config.Resolved.Mode), sr.Duration, o.config.Now())
	rec.ExitCode = sr.ExitCode
	if err := o.config.Markers.Put(ctx, rec); err != nil {
		o.config.Collector.IncMarkerWriteFailure()
		sr.Status = types.StageFailed
		sr.Error = err.Error()
		o.config.Collector.IncStageFailed()
		o.logger.Error("marker write failed", map[string]any{"stage": s.Name, "error": err.Error()})
		return &types.StageError{Stage: s.Name, Err: fmt.Errorf("record completion: %w", err)}
	}
	o.config.Collector.IncMarkerWrite()
	o.config.Collector.IncStageSucceeded()

	sr.Status = types.StageSucceeded
	o.logger.Info("stage succeeded", map[string]any{
		"stage":    s.Name,
		"duration": sr.Duration.String(),
		"marker":   o.config.Markers.Location(),
	})
	return nil
}

func stageNames(stages []stage.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name
	}
	return out
}
