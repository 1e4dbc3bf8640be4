package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/config"
	"github.com/clickwise/commission-svc/internal/models"
	"github.com/clickwise/commission-svc/internal/rabbitmq"
)

// Worker consumes payment-event task messages and runs them through the
// processing pipeline with manual acknowledgements.
type Worker struct {
	cfg         *config.WorkerConfig
	conn        *rabbitmq.Connection
	pipeline    *Pipeline
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	consumerTag string
	started     bool
}

func NewWorker(cfg *config.WorkerConfig, conn *rabbitmq.Connection, pipeline *Pipeline, logger *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg:         cfg,
		conn:        conn,
		pipeline:    pipeline,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		consumerTag: fmt.Sprintf("commission-worker-%d", time.Now().Unix()),
	}
}

// Start registers the consumer and begins processing messages.
func (w *Worker) Start() error {
	if w.cfg.TaskQueue == "" {
		return fmt.Errorf("task queue is required")
	}

	if err := w.startConsuming(); err != nil {
		return err
	}

	w.started = true
	w.logger.Info("Worker started and consuming messages",
		zap.String("task_queue", w.cfg.TaskQueue),
		zap.String("consumer_tag", w.consumerTag),
	)
	return nil
}

func (w *Worker) startConsuming() error {
	if err := w.conn.SetQoS(w.cfg.PrefetchCount); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	messages, err := w.conn.ConsumeMessages(w.cfg.TaskQueue, w.consumerTag)
	if err != nil {
		return fmt.Errorf("failed to start consuming from queue %s: %w", w.cfg.TaskQueue, err)
	}

	w.logger.Info("Consumer registered successfully",
		zap.String("queue", w.cfg.TaskQueue),
		zap.String("consumer_tag", w.consumerTag),
	)

	go w.processMessages(messages)

	return nil
}

// Stop cancels the consumer and stops message processing.
func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker",
		zap.String("consumer_tag", w.consumerTag),
	)
	w.cancel()

	if err := w.conn.CancelConsumer(w.consumerTag); err != nil {
		w.logger.Error("Failed to cancel consumer",
			zap.String("consumer_tag", w.consumerTag),
			zap.Error(err),
		)
	}

	w.logger.Info("Worker stopped")
	return nil
}

func (w *Worker) processMessages(messages <-chan amqp.Delivery) {
	w.logger.Info("Started message processing goroutine",
		zap.String("queue", w.cfg.TaskQueue),
		zap.String("consumer_tag", w.consumerTag),
	)

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Worker context cancelled, stopping message processing")
			return
		case msg, ok := <-messages:
			if !ok {
				w.logger.Warn("Message channel closed, attempting to restart consumer...",
					zap.String("task_queue", w.cfg.TaskQueue),
				)
				// Channel closed, keep retrying until consuming restarts
				// or the context is cancelled.
				for w.started {
					select {
					case <-w.ctx.Done():
						return
					default:
					}

					time.Sleep(2 * time.Second)

					if !w.conn.IsHealthy() {
						w.logger.Debug("Connection not healthy yet, waiting...",
							zap.String("task_queue", w.cfg.TaskQueue),
						)
						continue
					}

					if err := w.startConsuming(); err != nil {
						w.logger.Error("Failed to restart consuming after channel close, will retry",
							zap.String("task_queue", w.cfg.TaskQueue),
							zap.Error(err),
						)
						time.Sleep(5 * time.Second)
						continue
					}

					// Restart succeeded, a new processing goroutine owns the stream.
					w.logger.Info("Successfully restarted consumer after channel close",
						zap.String("task_queue", w.cfg.TaskQueue),
					)
					return
				}
				return
			}

			w.handleDelivery(msg)
		}
	}
}

// handleDelivery unmarshals and processes one delivery. Malformed payloads
// are rejected without requeue; pipeline failures are requeued.
func (w *Worker) handleDelivery(msg amqp.Delivery) {
	var task models.TaskMessage
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		w.logger.Error("Failed to unmarshal task message, dropping",
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to nack message", zap.Error(nackErr))
		}
		return
	}

	w.logger.Info("Processing task message",
		zap.String("event_id", task.EventID),
		zap.String("event_type", task.EventType),
	)

	if err := w.pipeline.Process(w.ctx, &task); err != nil {
		w.logger.Error("Failed to process task message, requeueing",
			zap.String("event_id", task.EventID),
			zap.String("event_type", task.EventType),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			w.logger.Error("Failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		w.logger.Error("Failed to ack message",
			zap.String("event_id", task.EventID),
			zap.Error(err),
		)
	}
}
