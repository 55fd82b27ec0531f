package worker

import (
	"github.com/spec-kit/asset-gateway/internal/service"
)

// StartSessionWatcher registers the credential and session event handlers.
func StartSessionWatcher(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
