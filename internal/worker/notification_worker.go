package worker

import (
	"context"

	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/service"
)

// StartNotificationWorker registers notification handlers and starts delivering queued
// events until ctx is cancelled. The returned channel closes once delivery has stopped.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher *events.AsyncDispatcher) <-chan struct{} {
	done := make(chan struct{})
	if notificationService == nil || dispatcher == nil {
		close(done)
		return done
	}
	notificationService.RegisterHandlers()
	go func() {
		defer close(done)
		dispatcher.Run(ctx)
	}()
	return done
}
