package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/course-portal-api/internal/models"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
)

type mockNotificationStore struct {
	notifications map[string]models.Notification
	createErr     error
	readIDs       []string
	readAllUsers  []string
	seq           int
}

func (m *mockNotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.notifications == nil {
		m.notifications = make(map[string]models.Notification)
	}
	m.seq++
	notification.ID = fmt.Sprintf("n%d", m.seq)
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *mockNotificationStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return &n, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationStore) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, int, error) {
	var list []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	return list, len(list), nil
}

func (m *mockNotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationStore) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	if n, ok := m.notifications[id]; ok {
		n.IsRead = true
		n.ReadAt = &readAt
		m.notifications[id] = n
	}
	m.readIDs = append(m.readIDs, id)
	return nil
}

func (m *mockNotificationStore) MarkAllRead(ctx context.Context, userID string, readAt time.Time) error {
	m.readAllUsers = append(m.readAllUsers, userID)
	return nil
}

type mockQueue struct {
	published []interface{}
}

func (m *mockQueue) Publish(ctx context.Context, message interface{}) error {
	m.published = append(m.published, message)
	return nil
}

func (m *mockQueue) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	return nil
}

func (m *mockQueue) Close() error { return nil }

type mockRealtimePusher struct {
	pushed map[string][][]byte
	err    error
}

func (m *mockRealtimePusher) Push(ctx context.Context, userID string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.pushed == nil {
		m.pushed = make(map[string][][]byte)
	}
	m.pushed[userID] = append(m.pushed[userID], payload)
	return nil
}

func TestNotificationServicePublish(t *testing.T) {
	queue := &mockQueue{}
	svc := NewNotificationService(&mockNotificationStore{}, queue, nil, nil, nil)

	related := "c1"
	event := models.NotificationEvent{
		UserID:    "u1",
		Title:     "Enrollment confirmed",
		Content:   "You are now enrolled",
		Type:      models.NotificationTypeEnrollSuccess,
		RelatedID: &related,
	}
	require.NoError(t, svc.Publish(context.Background(), event))
	require.Len(t, queue.published, 1)
	assert.Equal(t, event, queue.published[0])
}

func TestNotificationServiceHandleEventPersistsAndPushes(t *testing.T) {
	store := &mockNotificationStore{}
	pusher := &mockRealtimePusher{}
	svc := NewNotificationService(store, &mockQueue{}, pusher, nil, nil)

	body, err := json.Marshal(models.NotificationEvent{
		UserID:  "u1",
		Title:   "Enrollment confirmed",
		Content: "You are now enrolled",
		Type:    models.NotificationTypeEnrollSuccess,
	})
	require.NoError(t, err)
	require.NoError(t, svc.handleEvent(context.Background(), body))

	require.Len(t, store.notifications, 1)
	for _, n := range store.notifications {
		assert.Equal(t, "u1", n.UserID)
		assert.False(t, n.IsRead)
	}
	require.Len(t, pusher.pushed["u1"], 1)

	var pushed models.Notification
	require.NoError(t, json.Unmarshal(pusher.pushed["u1"][0], &pushed))
	assert.Equal(t, "Enrollment confirmed", pushed.Title)
}

func TestNotificationServiceHandleEventDropsMalformedPayload(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, &mockQueue{}, nil, nil, nil)

	// Garbage can never succeed on redelivery: no error, nothing stored.
	assert.NoError(t, svc.handleEvent(context.Background(), []byte("{not json")))
	assert.Empty(t, store.notifications)
}

func TestNotificationServiceHandleEventReturnsStoreError(t *testing.T) {
	store := &mockNotificationStore{createErr: fmt.Errorf("db down")}
	svc := NewNotificationService(store, &mockQueue{}, nil, nil, nil)

	body, _ := json.Marshal(models.NotificationEvent{UserID: "u1", Title: "x"})
	assert.Error(t, svc.handleEvent(context.Background(), body))
}

func TestNotificationServiceHandleEventToleratesPushFailure(t *testing.T) {
	store := &mockNotificationStore{}
	pusher := &mockRealtimePusher{err: fmt.Errorf("redis unavailable")}
	svc := NewNotificationService(store, &mockQueue{}, pusher, nil, nil)

	body, _ := json.Marshal(models.NotificationEvent{UserID: "u1", Title: "x"})
	assert.NoError(t, svc.handleEvent(context.Background(), body))
	assert.Len(t, store.notifications, 1)
}

func TestNotificationServiceMarkReadOwnership(t *testing.T) {
	store := &mockNotificationStore{notifications: map[string]models.Notification{
		"n1": {ID: "n1", UserID: "u1"},
	}}
	svc := NewNotificationService(store, &mockQueue{}, nil, nil, nil)

	err := svc.MarkRead(context.Background(), "n1", "intruder")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorizedOperation))
	assert.Empty(t, store.readIDs)

	require.NoError(t, svc.MarkRead(context.Background(), "n1", "u1"))
	assert.Contains(t, store.readIDs, "n1")
}

func TestNotificationServiceMarkReadNotFound(t *testing.T) {
	svc := NewNotificationService(&mockNotificationStore{}, &mockQueue{}, nil, nil, nil)

	err := svc.MarkRead(context.Background(), "missing", "u1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestNotificationServiceUnreadCount(t *testing.T) {
	readAt := time.Now()
	store := &mockNotificationStore{notifications: map[string]models.Notification{
		"n1": {ID: "n1", UserID: "u1"},
		"n2": {ID: "n2", UserID: "u1", IsRead: true, ReadAt: &readAt},
		"n3": {ID: "n3", UserID: "u2"},
	}}
	svc := NewNotificationService(store, &mockQueue{}, nil, nil, nil)

	count, err := svc.UnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, &mockQueue{}, nil, nil, nil)

	require.NoError(t, svc.MarkAllRead(context.Background(), "u1"))
	assert.Contains(t, store.readAllUsers, "u1")
}
