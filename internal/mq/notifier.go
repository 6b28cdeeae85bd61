package mq

import (
	"context"
	"log/slog"

	"github.com/shaiso/Cascade/internal/domain"
)

// EventNotifier публикует события orchestrator в cascade.events.
//
// Ошибка публикации только логируется: события информационные,
// на выполнение задания они не влияют.
type EventNotifier struct {
	sender Sender
	logger *slog.Logger
}

// NewEventNotifier создаёт EventNotifier.
func NewEventNotifier(sender Sender, logger *slog.Logger) *EventNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventNotifier{sender: sender, logger: logger}
}

// StepFinished публикует step.finished.
func (n *EventNotifier) StepFinished(ctx context.Context, d *domain.Deployment, rec *domain.StepRecord) {
	n.publish(ctx, RoutingKeyStepFinished, MessageTypeStepFinished, NewStepFinishedPayload(d, rec))
}

// DeploymentFinished публикует deployment.finished.
func (n *EventNotifier) DeploymentFinished(ctx context.Context, d *domain.Deployment) {
	n.publish(ctx, RoutingKeyDeploymentFinished, MessageTypeDeploymentFinished, NewDeploymentFinishedPayload(d))
}

func (n *EventNotifier) publish(ctx context.Context, key RoutingKey, msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, payload)
	if err == nil {
		err = n.sender.Publish(ctx, ExchangeEvents, key, msg)
	}
	if err != nil {
		n.logger.Warn("failed to publish event", "type", msgType, "error", err)
	}
}
