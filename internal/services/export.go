package services

import (
	"context"

	"monthlynet/internal/amqp"
	"monthlynet/internal/log"
)

// SnapshotExporter is satisfied by *sheets.Exporter.
type SnapshotExporter interface {
	ExportSnapshot(ctx context.Context, s amqp.SnapshotRecorded) (string, error)
}

// SnapshotExportHandler returns an AMQP handler that mirrors each
// snapshot.recorded event to exp. Export failures requeue the event.
func SnapshotExportHandler(exp SnapshotExporter, logger *log.Logger) amqp.Handler {
	logger = componentLogger(logger, log.ComponentSheets)
	return func(ctx context.Context, ev *amqp.Event) error {
		var payload amqp.SnapshotRecorded
		if err := ev.Decode(&payload); err != nil {
			logger.ErrorContext(ctx, "Dropping malformed snapshot event", "event_id", ev.ID, log.FieldError, err)
			return nil
		}
		_, err := exp.ExportSnapshot(ctx, payload)
		return err
	}
}

// RouteEvents dispatches events by type. Types without a handler are acked
// and dropped.
func RouteEvents(handlers map[amqp.EventType]amqp.Handler, logger *log.Logger) amqp.Handler {
	logger = componentLogger(logger, log.ComponentAMQP)
	return func(ctx context.Context, ev *amqp.Event) error {
		h, ok := handlers[ev.Type]
		if !ok || h == nil {
			logger.DebugContext(ctx, "No handler for event", "type", ev.Type, "event_id", ev.ID)
			return nil
		}
		return h(ctx, ev)
	}
}
