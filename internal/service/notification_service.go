package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/course-portal-api/internal/models"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
	"github.com/opencampus/course-portal-api/pkg/mq"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) error
}

// RealtimePusher delivers a serialized notification to a per-user live
// channel. Delivery is best-effort.
type RealtimePusher interface {
	Push(ctx context.Context, userID string, payload []byte) error
}

type notificationMetricsRecorder interface {
	ObserveNotificationDelivery(duration time.Duration)
}

// NotificationService decouples "enrollment succeeded" from "student is
// informed". The producer side publishes events onto the message queue and
// never blocks the admission path; the consumer side persists the
// notification row (the system of record) and then pushes the persisted form
// to the user's live channel.
type NotificationService struct {
	store   notificationStore
	queue   mq.Queue
	pusher  RealtimePusher
	metrics notificationMetricsRecorder
	logger  *zap.Logger
}

// NewNotificationService constructs NotificationService. pusher and metrics
// may be nil.
func NewNotificationService(store notificationStore, queue mq.Queue, pusher RealtimePusher, metrics notificationMetricsRecorder, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, queue: queue, pusher: pusher, metrics: metrics, logger: logger}
}

// Publish enqueues an event for asynchronous delivery.
func (s *NotificationService) Publish(ctx context.Context, event models.NotificationEvent) error {
	if s.queue == nil {
		return fmt.Errorf("notification queue not configured")
	}
	return s.queue.Publish(ctx, event)
}

// Start begins consuming the notification queue until ctx is cancelled.
func (s *NotificationService) Start(ctx context.Context) error {
	if s.queue == nil {
		return fmt.Errorf("notification queue not configured")
	}
	return s.queue.Consume(ctx, s.handleEvent)
}

// handleEvent persists the event and pushes it to the user's live channel.
// A persistence failure is returned so the delivery is redelivered; the
// consumer tolerates redelivery (at-least-once). A push failure is logged
// only: it must never fail or retry the persisted write.
func (s *NotificationService) handleEvent(ctx context.Context, body []byte) error {
	var event models.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Malformed payloads can never succeed; drop instead of requeueing.
		s.logger.Error("discarding malformed notification event", zap.Error(err))
		return nil
	}

	start := time.Now()
	notification := models.Notification{
		UserID:    event.UserID,
		Title:     event.Title,
		Content:   event.Content,
		Type:      event.Type,
		RelatedID: event.RelatedID,
		IsRead:    false,
		CreatedAt: start.UTC(),
	}
	if err := s.store.Create(ctx, &notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveNotificationDelivery(time.Since(start))
	}

	if s.pusher != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			err = s.pusher.Push(ctx, notification.UserID, payload)
		}
		if err != nil {
			s.logger.Warn("realtime push failed",
				zap.String("user_id", notification.UserID),
				zap.String("notification_id", notification.ID),
				zap.Error(err))
		}
	}
	return nil
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	notifications, total, err := s.store.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return notifications, pagination, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead flags one notification as read after an ownership check.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	notification, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if notification.UserID != userID {
		return appErrors.Clone(appErrors.ErrUnauthorizedOperation, "")
	}
	if err := s.store.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.MarkAllRead(ctx, userID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
