package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devhubhq/devhub/internal/jobs"
	"github.com/devhubhq/devhub/internal/notifications"
	"github.com/devhubhq/devhub/internal/observability"
)

// JobQueue is the slice of the queue the worker needs: pop work, push back
// retries. Kept small so tests can fake it.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, bool, error)
	Enqueue(ctx context.Context, j jobs.Job) error
}

type Config struct {
	WorkerID    string
	PollTimeout time.Duration
}

type Worker struct {
	cfg      Config
	queue    JobQueue
	notifier notifications.Notifier
	metrics  *observability.Prom
	log      *slog.Logger
}

func New(cfg Config, queue JobQueue, notifier notifications.Notifier, metrics *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		queue:    queue,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal", "worker_id", w.cfg.WorkerID)
			return nil
		default:
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			w.log.Error("dequeue failed", "err", err, "worker_id", w.cfg.WorkerID)

			// queue outage: back off briefly instead of spinning
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		_ = processed
	}
}

// ProcessOne pops and executes a single job. Returns false with a nil error
// when the poll timed out empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, ok, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)

	if err != nil {
		return false, err
	}

	if !ok {
		return false, nil
	}

	// not due yet: push back and let the loop continue
	if time.Until(j.RunAt) > 0 {
		if err := w.queue.Enqueue(ctx, j); err != nil {
			w.log.Error("requeue of delayed job failed", "err", err, "job_id", j.ID)
		}

		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
		}
		return false, nil
	}

	w.metrics.JobsInFlight.Inc()
	start := time.Now()

	execErr := w.execute(ctx, j)

	w.metrics.JobsInFlight.Dec()

	if execErr != nil {
		w.handleFailure(ctx, j, execErr, time.Since(start))
		return true, nil
	}

	w.metrics.ObserveJob(string(j.Type), "done", time.Since(start))
	w.log.Info("job done", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.WelcomeEmailPayload:
		return w.notifier.SendWelcome(ctx, notifications.SendWelcomeInput{
			UserID: p.UserID,
			Email:  p.Email,
			Name:   p.Name,
		})

	case jobs.AccountDeletedPayload:
		return w.notifier.SendAccountDeleted(ctx, notifications.SendAccountDeletedInput{
			UserID: p.UserID,
			Email:  p.Email,
			Name:   p.Name,
		})

	default:
		return fmt.Errorf("%w: %T", jobs.ErrInvalidJobType, decoded)
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, execErr error, elapsed time.Duration) {
	j.Attempts++
	msg := execErr.Error()
	j.LastError = &msg
	j.UpdatedAt = time.Now().UTC()

	if j.Attempts >= j.MaxTries {
		j.Status = jobs.JobFailed
		w.metrics.ObserveJob(string(j.Type), "failed", elapsed)
		w.log.Error("job failed permanently",
			"job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "err", execErr)
		return
	}

	j.Status = jobs.JobPending
	j.RunAt = time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	w.metrics.ObserveJob(string(j.Type), "retry", elapsed)

	if err := w.queue.Enqueue(ctx, j); err != nil {
		w.log.Error("requeue after failure failed", "err", err, "job_id", j.ID)
		return
	}

	w.log.Warn("job scheduled for retry",
		"job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "run_at", j.RunAt)
}
