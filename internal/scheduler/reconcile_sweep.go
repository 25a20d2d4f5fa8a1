package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alevras/tally/internal/domain"
)

// LedgerService is the subset of the ledger service the sweep needs
type LedgerService interface {
	Agents() ([]string, error)
	Reconcile(agentID string, rate float64) ([]domain.UnifiedTrade, error)
}

// ReconcileSweepJob periodically recomputes every agent's unified trade
// set, refreshing snapshots that drifted (for example after a crash
// between a leg insert and its snapshot refresh).
type ReconcileSweepJob struct {
	service LedgerService
	log     zerolog.Logger
}

// NewReconcileSweepJob creates a new reconciliation sweep job
func NewReconcileSweepJob(service LedgerService, log zerolog.Logger) *ReconcileSweepJob {
	return &ReconcileSweepJob{
		service: service,
		log:     log.With().Str("job", "reconcile_sweep").Logger(),
	}
}

// Name returns the job identifier
func (j *ReconcileSweepJob) Name() string {
	return "reconcile_sweep"
}

// Run reconciles every known agent at the default rate
func (j *ReconcileSweepJob) Run() error {
	agents, err := j.service.Agents()
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}

	var failed int
	for _, agentID := range agents {
		if _, err := j.service.Reconcile(agentID, 0); err != nil {
			j.log.Error().Err(err).Str("agent_id", agentID).Msg("Sweep reconciliation failed")
			failed++
		}
	}

	j.log.Debug().
		Int("agents", len(agents)).
		Int("failed", failed).
		Msg("Reconciliation sweep completed")

	if failed > 0 {
		return fmt.Errorf("sweep failed for %d of %d agents", failed, len(agents))
	}
	return nil
}
