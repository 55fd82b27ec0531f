package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/events"
	"github.com/spec-kit/asset-gateway/internal/observability"
)

// NotificationService reacts to credential and gateway events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	onExpired  func(events.SessionExpiredPayload)
}

// NewNotificationService creates the service. onExpired, when set, runs after the
// credential was rejected, e.g. to print a re-login hint.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, onExpired func(events.SessionExpiredPayload)) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     observability.OrNop(logger),
		onExpired:  onExpired,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCredentialSaved, n.handleCredentialSaved)
	n.dispatcher.Subscribe(events.EventCredentialCleared, n.handleCredentialCleared)
	n.dispatcher.Subscribe(events.EventSessionExpired, n.handleSessionExpired)
	n.dispatcher.Subscribe(events.EventBulkFallback, n.handleBulkFallback)
}

func (n *NotificationService) handleCredentialSaved(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.CredentialSavedPayload)
	n.logger.Debug("CredentialSaved", zap.String("event_id", event.ID), zap.String("scope", payload.Scope))
	return nil
}

func (n *NotificationService) handleCredentialCleared(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.CredentialClearedPayload)
	n.logger.Debug("CredentialCleared", zap.String("event_id", event.ID), zap.String("reason", payload.Reason))
	return nil
}

func (n *NotificationService) handleSessionExpired(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionExpiredPayload)
	n.logger.Warn("SessionExpired",
		zap.String("event_id", event.ID),
		zap.String("method", payload.Method),
		zap.String("path", payload.Path),
		zap.Int("status", payload.Status),
		zap.String("backend_message", payload.BackendMessage),
	)
	if n.onExpired != nil {
		n.onExpired(payload)
	}
	return nil
}

func (n *NotificationService) handleBulkFallback(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.BulkFallbackPayload)
	n.logger.Info("BulkFallback",
		zap.String("resource", payload.Resource),
		zap.Int("count", payload.Count),
		zap.String("reason", payload.Reason),
	)
	return nil
}
