package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// Reconciler replays the ledger of every account against the stored state.
type Reconciler interface {
	Reconcile(ctx context.Context) (model.ReconcileReport, error)
}

// ReconcileJob periodically checks that holdings and cash agree with the ledger:
// every holding equals the sum of its share deltas and every cash balance equals
// the initial deposit plus the cash flow of its transactions.
type ReconcileJob struct {
	log        zerolog.Logger
	reconciler Reconciler
	timeout    time.Duration
}

// NewReconcileJob creates a new reconciliation job
func NewReconcileJob(log zerolog.Logger, reconciler Reconciler, timeout time.Duration) *ReconcileJob {
	return &ReconcileJob{
		log:        log.With().Str("job", "ledger_reconciliation").Logger(),
		reconciler: reconciler,
		timeout:    timeout,
	}
}

// Name returns the job name
func (j *ReconcileJob) Name() string {
	return "ledger_reconciliation"
}

// Run executes the reconciliation.
// Discrepancies are reported as an error wrapping apperrors.ErrDataInconsistency.
func (j *ReconcileJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	startTime := time.Now()

	report, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	j.log.Info().
		Int("accounts", report.AccountsChecked).
		Int("discrepancies", len(report.Discrepancies)).
		Dur("duration", time.Since(startTime)).
		Msg("Reconciliation finished")

	if !report.Consistent() {
		return fmt.Errorf("%w: %d discrepancies across %d accounts",
			apperrors.ErrDataInconsistency, len(report.Discrepancies), report.AccountsChecked)
	}

	return nil
}
