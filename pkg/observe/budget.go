package observe

import "fmt"

// commitBudget bounds the work of a single commit. Effects that write to
// their own dependencies (directly or through other effects) would
// otherwise keep a commit looping forever.
type commitBudget struct {
	maxPasses int
	maxRuns   int

	exceeded int
	dropped  int
}

func newCommitBudget(cfg BudgetConfig) *commitBudget {
	b := &commitBudget{
		maxPasses: cfg.MaxPassesPerCommit,
		maxRuns:   cfg.MaxEffectRunsPerCommit,
	}
	if b.maxPasses <= 0 {
		b.maxPasses = DefaultMaxPassesPerCommit
	}
	if b.maxRuns < 0 {
		b.maxRuns = 0
	}
	return b
}

// checkPass returns ErrBudgetExceeded if tx may not start another pass.
func (b *commitBudget) checkPass(tx *Transaction) error {
	if tx.passes >= b.maxPasses {
		return fmt.Errorf("%w: %d passes", ErrBudgetExceeded, tx.passes)
	}
	return nil
}

// checkRun returns ErrBudgetExceeded if tx may not run another effect.
func (b *commitBudget) checkRun(tx *Transaction) error {
	if b.maxRuns == 0 {
		return nil
	}
	if tx.runs >= b.maxRuns {
		return fmt.Errorf("%w: %d effect runs", ErrBudgetExceeded, tx.runs)
	}
	return nil
}

// BudgetStats reports how often commits hit their budget.
type BudgetStats struct {
	// Exceeded counts commits that stopped early.
	Exceeded int

	// Dropped counts queued effect runs abandoned by those commits.
	Dropped int
}

// BudgetStats returns the runtime's budget statistics.
func (rt *Runtime) BudgetStats() BudgetStats {
	return BudgetStats{Exceeded: rt.budget.exceeded, Dropped: rt.budget.dropped}
}
