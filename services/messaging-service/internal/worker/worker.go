package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hatch/messaging/internal/models"
	"github.com/hatch/messaging/services/messaging-service/internal/dispatch"
	"github.com/hatch/messaging/services/messaging-service/internal/queue"
)

// Deliverer runs one delivery attempt.
type Deliverer interface {
	Deliver(ctx context.Context, job models.DispatchJob) dispatch.Result
}

// Scheduler reschedules a job after a non-terminal attempt.
type Scheduler interface {
	PublishRetry(ctx context.Context, job models.DispatchJob, delay time.Duration) error
}

// Worker consumes dispatch jobs and drives the delivery state machine. One
// attempt runs per consumed job; retries re-enter the queue as new jobs with
// an incremented attempt counter, so attempts for one message are never
// concurrent.
type Worker struct {
	task      Deliverer
	scheduler Scheduler
}

func New(task Deliverer, scheduler Scheduler) *Worker {
	return &Worker{task: task, scheduler: scheduler}
}

// Run consumes the dispatch queue until ctx is done. Manual acks: a job is
// acked once its outcome is settled (delivered, rescheduled, or exhausted);
// malformed jobs are dropped without requeue.
func (w *Worker) Run(ctx context.Context, ch *amqp.Channel) error {
	if err := queue.DeclareTopology(ch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(queue.DispatchQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", queue.DispatchQueue, err)
	}

	log.Println("dispatch worker started, waiting for jobs...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("dispatch consumer channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job models.DispatchJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("invalid dispatch job: %v", err)
		_ = d.Nack(false, false)
		return
	}

	result := w.task.Deliver(ctx, job)

	switch dispatch.Next(result, job.Attempt) {
	case dispatch.StateSucceeded:
		envelope, _ := json.Marshal(result.Envelope())
		log.Printf("delivered message %s to %s: %s", job.Payload.ProviderMessageID, job.ProviderURL, envelope)
	case dispatch.StateRetriesExhausted:
		// Terminal: report to the job log and stop rescheduling. The
		// original caller already got a 202; there is nothing left to tell
		// them.
		log.Printf("giving up on message %s after %d attempts: %v",
			job.Payload.ProviderMessageID, job.Attempt+1, result.Err)
	default:
		retry := job
		retry.Attempt = job.Attempt + 1
		if err := w.scheduler.PublishRetry(ctx, retry, result.Delay); err != nil {
			log.Printf("failed to reschedule message %s: %v", job.Payload.ProviderMessageID, err)
			// Requeue so the attempt is not lost with the broker down.
			_ = d.Nack(false, true)
			return
		}
		log.Printf("retrying message %s in %s (attempt %d/%d): %v",
			job.Payload.ProviderMessageID, result.Delay, retry.Attempt+1, dispatch.MaxAttempts, result.Err)
	}

	_ = d.Ack(false)
}
