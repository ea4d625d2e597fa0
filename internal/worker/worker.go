package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"public-safety-incident-system/internal/incident"
	"public-safety-incident-system/internal/queue"
	"public-safety-incident-system/internal/service"
	"public-safety-incident-system/shared/logx"
	"public-safety-incident-system/shared/metricsx"
	"public-safety-incident-system/shared/tenantx"
)

// Processor handles one decoded queue message.
type Processor interface {
	ProcessMessage(ctx context.Context, msg queue.Message) error
}

type Options struct {
	BatchSize int
	PollWait  time.Duration
	Backoff   time.Duration
	Provider  string
}

// Runner drains the incident queue one message at a time. Messages are only
// deleted after their outcome is durably saved; anything left behind comes
// back on redelivery.
type Runner struct {
	consumer  queue.Consumer
	processor Processor
	logger    logx.Logger
	opts      Options
}

func NewRunner(consumer queue.Consumer, processor Processor, logger logx.Logger, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.PollWait <= 0 {
		opts.PollWait = time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	return &Runner{consumer: consumer, processor: processor, logger: logger, opts: opts}
}

// Run blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info(ctx, "worker_started", "incident worker started",
		slog.Int("batch_size", r.opts.BatchSize),
		slog.String("queue_provider", r.opts.Provider),
	)
	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info(ctx, "worker_stopped", "incident worker stopped")
			return err
		}

		envelopes, err := r.consumer.Receive(ctx, r.opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			metricsx.IncReceiveFailure()
			r.logger.Warn(ctx, "queue_receive_failed", "receive failed, backing off",
				slog.String("error", err.Error()),
			)
			sleep(ctx, r.opts.Backoff)
			continue
		}
		metricsx.ObserveReceiveBatch(len(envelopes))

		for _, env := range envelopes {
			r.handle(ctx, env)
		}

		// The pause applies after every batch, full or empty; the loop
		// never polls the broker back to back.
		sleep(ctx, r.opts.PollWait)
	}
}

func (r *Runner) handle(ctx context.Context, env queue.Envelope) {
	msg := env.Message
	ctx = tenantx.WithTenant(ctx, msg.TenantID)

	start := time.Now()
	err := r.processor.ProcessMessage(ctx, msg)
	metricsx.ObserveProcessLatency(time.Since(start))

	switch {
	case err == nil:
		r.delete(ctx, env, "processed")

	case errors.Is(err, service.ErrNotFound):
		// Retrying cannot help: the incident was never stored or the
		// tenant is wrong. Keep the message visible for operators.
		metricsx.IncMessageOutcome("not_found")
		r.logger.Error(ctx, "incident_missing", "queued incident does not exist",
			slog.String("incident_id", msg.IncidentID.String()),
			slog.String("tenant_id", msg.TenantID),
			slog.String("correlation_id", msg.CorrelationID),
			slog.String("error", err.Error()),
		)

	case errors.Is(err, incident.ErrValidation):
		// Duplicate delivery of an already finished incident. Ack it so
		// it stops circulating.
		r.logger.Warn(ctx, "duplicate_delivery", "message for already finished incident",
			slog.String("incident_id", msg.IncidentID.String()),
			slog.String("tenant_id", msg.TenantID),
			slog.String("correlation_id", msg.CorrelationID),
		)
		r.delete(ctx, env, "skipped")

	default:
		// Transient storage or queue trouble. Leave the message for
		// redelivery.
		metricsx.IncMessageOutcome("failed")
		r.logger.Warn(ctx, "incident_process_failed", "processing failed, message left for redelivery",
			slog.String("incident_id", msg.IncidentID.String()),
			slog.String("tenant_id", msg.TenantID),
			slog.String("correlation_id", msg.CorrelationID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Runner) delete(ctx context.Context, env queue.Envelope, outcome string) {
	if err := r.consumer.Delete(ctx, env.ReceiptHandle); err != nil {
		r.logger.Warn(ctx, "queue_delete_failed", "ack failed, message will redeliver",
			slog.String("incident_id", env.Message.IncidentID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	metricsx.IncQueueDeleted(r.opts.Provider)
	metricsx.IncMessageOutcome(outcome)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
