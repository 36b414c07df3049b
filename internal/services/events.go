package services

import (
	"context"

	"monthlynet/internal/amqp"
	"monthlynet/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.Event) error
}

// publish sends an event without failing the caller: the local write has
// already succeeded by the time events go out.
func publish(ctx context.Context, pub EventPublisher, logger *log.Logger, t amqp.EventType, payload any) {
	if pub == nil {
		return
	}
	ev, err := amqp.NewEvent(t, payload)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build event", "type", t, log.FieldError, err)
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "type", t, log.FieldError, err)
	}
}

func componentLogger(logger *log.Logger, component string) *log.Logger {
	if logger == nil {
		return log.New(log.Config{Component: component})
	}
	return logger.WithComponent(component)
}
