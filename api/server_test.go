package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/hub"
	"github.com/minhvu/taskhive-BE/internal/notification"
	"github.com/minhvu/taskhive-BE/internal/util"
	"github.com/minhvu/taskhive-BE/internal/webhook"
	"github.com/minhvu/taskhive-BE/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecretKey = "0123456789abcdef0123456789abcdef"

// fakeStore is an in-memory db.Store for handler tests.
type fakeStore struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]db.Notification
	clock         time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notifications: make(map[uuid.UUID]db.Notification),
		clock:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) CreateNotification(_ context.Context, arg db.CreateNotificationParams) (db.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock = s.clock.Add(time.Second)
	n := db.Notification{
		ID:          arg.ID,
		RecipientID: arg.RecipientID,
		Kind:        arg.Kind,
		Payload:     arg.Payload,
		RelatedType: arg.RelatedType,
		RelatedID:   arg.RelatedID,
		CreatedAt:   s.clock,
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *fakeStore) GetNotification(_ context.Context, id uuid.UUID) (db.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return db.Notification{}, db.ErrRecordNotFound
	}
	return n, nil
}

func (s *fakeStore) ListUndeliveredNotifications(_ context.Context, recipientID string) ([]db.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []db.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Delivered {
			items = append(items, n)
		}
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[j].CreatedAt.Before(items[i].CreatedAt) {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	return items, nil
}

func (s *fakeStore) ListNotificationsByRecipient(_ context.Context, arg db.ListNotificationsByRecipientParams) ([]db.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []db.Notification
	for _, n := range s.notifications {
		if n.RecipientID == arg.RecipientID && (!arg.UnreadOnly || !n.Read) {
			items = append(items, n)
		}
	}
	return items, nil
}

func (s *fakeStore) CountUnreadNotifications(_ context.Context, recipientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) UpdateNotificationFlags(_ context.Context, arg db.UpdateNotificationFlagsParams) (db.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[arg.ID]
	if !ok {
		return db.Notification{}, db.ErrRecordNotFound
	}
	n.Delivered = n.Delivered || arg.SetDelivered
	n.Read = n.Read || arg.SetRead
	s.notifications[arg.ID] = n
	return n, nil
}

func (s *fakeStore) CreateTaskAssignment(_ context.Context, _ db.CreateTaskAssignmentParams) (db.TaskAssignment, error) {
	return db.TaskAssignment{}, errors.New("not implemented")
}

func (s *fakeStore) GetTaskAssignment(_ context.Context, _ int64) (db.TaskAssignment, error) {
	return db.TaskAssignment{}, errors.New("not implemented")
}

func (s *fakeStore) ListTaskAssignmentsForUpdate(_ context.Context, _ int64) ([]db.TaskAssignment, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) ListTasksForReconciliation(_ context.Context) ([]int64, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) UpdateTaskAssignmentStatus(_ context.Context, _ db.UpdateTaskAssignmentStatusParams) (db.TaskAssignment, error) {
	return db.TaskAssignment{}, errors.New("not implemented")
}

func (s *fakeStore) ReconcileTaskAssignmentsTx(_ context.Context, _ int64) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *fakeStore) AcquireReconcileLock(_ context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

func (s *fakeStore) Ping(_ context.Context) error { return nil }

type fakeReconciler struct {
	updated int
	err     error
}

func (r *fakeReconciler) Reconcile(_ context.Context) (int, error) {
	return r.updated, r.err
}

type fakeDistributor struct {
	mu        sync.Mutex
	delivered []uuid.UUID
	events    []webhook.Event
}

func (d *fakeDistributor) DistributeTaskDeliverNotification(_ context.Context, payload *worker.PayloadDeliverNotification, _ ...asynq.Option) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, payload.NotificationID)
	return nil
}

func (d *fakeDistributor) DistributeTaskEmitWebhook(_ context.Context, payload *worker.PayloadEmitWebhook, _ ...asynq.Option) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, payload.Event)
	return nil
}

type fakeInspector struct{}

func (i *fakeInspector) DeleteTask(_ context.Context, _, _ string) error {
	return errors.New("task not found")
}

func (i *fakeInspector) GetTaskInfo(_ context.Context, _, _ string) (*asynq.TaskInfo, error) {
	return nil, errors.New("task not found")
}

type testEnv struct {
	server      *Server
	store       *fakeStore
	registry    *hub.Registry
	reconciler  *fakeReconciler
	distributor *fakeDistributor
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	registry := hub.NewRegistry()
	notifier := notification.NewService(store, registry)
	recon := &fakeReconciler{}
	distributor := &fakeDistributor{}

	config := &util.Config{
		AllowedOrigins:      []string{"http://localhost:3000"},
		TokenSecretKey:      testSecretKey,
		AccessTokenDuration: time.Hour,
	}

	server, err := NewServer(store, registry, notifier, recon, distributor, &fakeInspector{}, config)
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}

	return &testEnv{
		server:      server,
		store:       store,
		registry:    registry,
		reconciler:  recon,
		distributor: distributor,
	}
}

func (env *testEnv) tokenFor(t *testing.T, userID string) string {
	t.Helper()

	accessToken, _, err := env.server.tokenMaker.CreateToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	return accessToken
}
