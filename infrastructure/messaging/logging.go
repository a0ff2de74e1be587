// Package messaging holds the event publishers that do not need AWS
package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/events"
)

// LoggingPublisher writes each event to the log. It stands in for
// EventBridge when the service runs outside AWS.
type LoggingPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*LoggingPublisher)(nil)

// NewLoggingPublisher creates a publisher that only logs
func NewLoggingPublisher(logger *zap.Logger) *LoggingPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPublisher{logger: logger}
}

// Publish logs every event at info level
func (p *LoggingPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	for _, event := range domainEvents {
		p.logger.Info("Domain event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Int("version", event.GetVersion()),
			zap.Time("timestamp", event.GetTimestamp()),
		)
	}
	return nil
}
