package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"pdf-chatbot-backend/internal/model"
	"pdf-chatbot-backend/internal/platform/rabbitmq"
)

type DocumentRegistry interface {
	Upsert(ctx context.Context, record *model.DocumentRecord) error
}

// IngestEventWorker consumes DocumentIngested events and records them in
// the document registry.
type IngestEventWorker struct {
	conn      *amqp.Connection
	registry  DocumentRegistry
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestEventWorker(conn *amqp.Connection, registry DocumentRegistry, queueName string) *IngestEventWorker {
	return &IngestEventWorker{
		conn:      conn,
		registry:  registry,
		queueName: queueName,
	}
}

func (w *IngestEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := rabbitmq.DeclareQueue(w.conn, w.queueName)
	if err != nil {
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					slog.Error("ingest event worker failed", "message_id", d.MessageId, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.DocumentIngested
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode ingest event failed: %w", err)
	}
	if event.DocumentID == "" {
		return fmt.Errorf("ingest event without document id")
	}
	record := event.Record()
	return w.registry.Upsert(ctx, &record)
}

func (w *IngestEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
