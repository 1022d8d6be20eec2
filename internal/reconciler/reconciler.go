package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning means another reconciler run holds the advisory lock,
// possibly on a different engine instance.
var ErrAlreadyRunning = errors.New("a reconciliation run is already in progress")

// Store is the slice of the db store the reconciler needs.
type Store interface {
	ListTasksForReconciliation(ctx context.Context) ([]int64, error)
	ReconcileTaskAssignmentsTx(ctx context.Context, taskID int64) (int, error)
	AcquireReconcileLock(ctx context.Context) (release func(), acquired bool, err error)
}

// Reconciler repairs task-assignment records left inconsistent by upstream
// mutation. Runs are serialized through a database advisory lock; each task
// is repaired in its own transaction.
type Reconciler struct {
	store     Store
	scheduler gocron.Scheduler
}

func New(store Store) (*Reconciler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Reconciler{
		store:     store,
		scheduler: scheduler,
	}, nil
}

// Reconcile scans every task that has pending or orphaned assignments and
// repairs them one transaction per task. It returns the number of assignment
// records updated. A failed task is logged and skipped so one bad task
// cannot starve the rest of the batch.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	release, acquired, err := r.store.AcquireReconcileLock(ctx)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, ErrAlreadyRunning
	}
	defer release()

	taskIDs, err := r.store.ListTasksForReconciliation(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, taskID := range taskIDs {
		updated, err := r.store.ReconcileTaskAssignmentsTx(ctx, taskID)
		if err != nil {
			log.Error().Err(err).Int64("task_id", taskID).Msg("failed to reconcile task assignments")
			continue
		}
		total += updated
	}

	log.Info().Int("tasks_scanned", len(taskIDs)).Int("assignments_updated", total).Msg("reconciliation run finished")
	return total, nil
}

// Start schedules periodic reconciliation runs.
func (r *Reconciler) Start(interval time.Duration) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := r.Reconcile(context.Background()); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				log.Error().Err(err).Msg("scheduled reconciliation run failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down. In-flight runs finish.
func (r *Reconciler) Stop() error {
	return r.scheduler.Shutdown()
}
