// Package workflow sequences a job's phases as blocks with per-block
// failure policy. A workflow is declared statically as data; the
// orchestrator is a generic sequencer, so adding a job type means adding
// one declaration, not a hand-written script.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"marketsync/internal/models"
)

// BlockPolicy decides how a phase failure affects the rest of its block.
type BlockPolicy int

const (
	// Critical: phases depend on each other's writes. Any failure aborts
	// the remaining phases of the block, rolls back the block transaction
	// and fails the job.
	Critical BlockPolicy = iota
	// BestEffort: phases operate on independent entity domains. Failures
	// are logged and the next phase still runs; only a fatal error fails
	// the job.
	BestEffort
)

func (p BlockPolicy) String() string {
	if p == Critical {
		return "critical"
	}
	return "best-effort"
}

// Phase is one discrete step of a workflow.
type Phase struct {
	Name string
	Run  func(ctx context.Context, rc *RunContext) error
}

// Block groups phases under one failure policy. Transactional blocks get
// their own store transaction, committed before the next block starts.
type Block struct {
	Name          string
	Policy        BlockPolicy
	Transactional bool
	Phases        []Phase
}

// Workflow is the static declaration for one job type. Preflight runs
// before any phase; a preflight error fails the job immediately.
type Workflow struct {
	Type      models.JobType
	Preflight func(ctx context.Context, rc *RunContext) error
	Blocks    []Block
}

// PhaseStatus is the recorded outcome of one phase.
type PhaseStatus string

const (
	PhaseOK      PhaseStatus = "OK"
	PhaseFailed  PhaseStatus = "FAILED"
	PhaseSkipped PhaseStatus = "SKIPPED"
)

// PhaseResult is one entry of the run record.
type PhaseResult struct {
	Block  string      `json:"block"`
	Phase  string      `json:"phase"`
	Status PhaseStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Report is the ephemeral record of one run, folded into the job status
// and the log sink afterwards.
type Report struct {
	Phases []PhaseResult `json:"phases"`
}

func (r *Report) add(block, phase string, status PhaseStatus, err error) {
	pr := PhaseResult{Block: block, Phase: phase, Status: status}
	if err != nil {
		pr.Error = err.Error()
	}
	r.Phases = append(r.Phases, pr)
}

// Failures returns the failed phase results.
func (r *Report) Failures() []PhaseResult {
	var out []PhaseResult
	for _, pr := range r.Phases {
		if pr.Status == PhaseFailed {
			out = append(out, pr)
		}
	}
	return out
}

// Registry maps job types to their workflow declarations.
type Registry struct {
	workflows map[models.JobType]Workflow
}

func NewRegistry(workflows ...Workflow) *Registry {
	r := &Registry{workflows: make(map[models.JobType]Workflow, len(workflows))}
	for _, wf := range workflows {
		r.workflows[wf.Type] = wf
	}
	return r
}

// Lookup returns the workflow for a job type.
func (r *Registry) Lookup(t models.JobType) (Workflow, bool) {
	wf, ok := r.workflows[t]
	return wf, ok
}

// Run executes the workflow's blocks in order. The returned Report always
// covers every declared phase; the error is non-nil only when the job as
// a whole failed (critical-block failure or fatal error).
func Run(ctx context.Context, wf Workflow, rc *RunContext) (*Report, error) {
	report := &Report{}

	if wf.Preflight != nil {
		if err := wf.Preflight(ctx, rc); err != nil {
			markAllSkipped(report, wf.Blocks, 0, 0)
			return report, fmt.Errorf("preflight: %w", err)
		}
	}

	for bi, block := range wf.Blocks {
		if err := runBlock(ctx, block, rc, report); err != nil {
			markAllSkipped(report, wf.Blocks, bi+1, 0)
			return report, err
		}
	}
	return report, nil
}

func runBlock(ctx context.Context, b Block, rc *RunContext, report *Report) error {
	if b.Transactional {
		if err := rc.beginBlock(ctx); err != nil {
			markAllSkipped(report, []Block{b}, 0, 0)
			return err
		}
	}

	for pi, phase := range b.Phases {
		rc.Log.Infof(ctx, "[%s/%s] phase %d/%d", b.Name, phase.Name, pi+1, len(b.Phases))

		err := phase.Run(ctx, rc)
		switch {
		case err == nil:
			report.add(b.Name, phase.Name, PhaseOK, nil)

		case errors.Is(err, ErrPhaseSkipped):
			report.add(b.Name, phase.Name, PhaseSkipped, nil)
			rc.Log.Infof(ctx, "[%s/%s] skipped", b.Name, phase.Name)

		case b.Policy == Critical || IsFatal(err):
			report.add(b.Name, phase.Name, PhaseFailed, err)
			for _, rest := range b.Phases[pi+1:] {
				report.add(b.Name, rest.Name, PhaseSkipped, nil)
			}
			if b.Transactional {
				rc.rollbackBlock()
				rc.Log.Errorf(ctx, "[%s] rolled back after phase %s: %v", b.Name, phase.Name, err)
			}
			return fmt.Errorf("block %s, phase %s: %w", b.Name, phase.Name, err)

		default:
			// best-effort: record, log, keep going
			report.add(b.Name, phase.Name, PhaseFailed, err)
			rc.Log.Errorf(ctx, "[%s/%s] failed, continuing: %v", b.Name, phase.Name, err)
		}
	}

	if b.Transactional {
		if err := rc.commitBlock(); err != nil {
			return err
		}
	}
	return nil
}

// markAllSkipped records SKIPPED for every phase from blocks[fromBlock:]
// starting at phase fromPhase of the first of them.
func markAllSkipped(report *Report, blocks []Block, fromBlock, fromPhase int) {
	for bi := fromBlock; bi < len(blocks); bi++ {
		start := 0
		if bi == fromBlock {
			start = fromPhase
		}
		for _, p := range blocks[bi].Phases[start:] {
			report.add(blocks[bi].Name, p.Name, PhaseSkipped, nil)
		}
	}
}
