package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sitesupply/internal/apperror"
	"sitesupply/internal/authz"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Event is a domain signal for the notification inbox.
type Event struct {
	Type       string
	OrderID    *uuid.UUID
	Recipients []uuid.UUID
	Data       map[string]interface{}
}

// eventRoles lists the roles that receive an event in addition to the
// explicit recipients carried by the event.
var eventRoles = map[string][]string{
	model.EventOrderCreated:            {authz.RoleStoreManager, authz.RoleAdmin},
	model.EventOrderReadyForCompletion: {authz.RoleStoreManager, authz.RoleAdmin},
	model.EventOrderCompleted:          {authz.RoleStoreManager},
	model.EventOrderCancelled:          {authz.RoleStoreManager},
	model.EventLowStock:                {authz.RoleStoreManager, authz.RoleAdmin},
	model.EventReturnRecorded:          {authz.RoleStoreManager},
}

// NotificationSink records notifications inside the caller's transaction and
// pushes them to connected clients after commit.
type NotificationSink interface {
	Record(ctx context.Context, events ...Event) ([]model.Notification, error)
	Publish(notifications []model.Notification)
}

// Broadcaster is the push channel; the websocket hub implements it.
type Broadcaster interface {
	Publish(recipients []uuid.UUID, payload []byte) bool
}

type NotificationResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OrderID   *string         `json:"order_id"`
	Payload   json.RawMessage `json:"payload"`
	Read      bool            `json:"read"`
	CreatedAt string          `json:"created_at"`
}

type NotificationService interface {
	NotificationSink
	ListForUser(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, actor Actor, id string) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	users  repository.UserRepository
	push   Broadcaster
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, push Broadcaster, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, users: users, push: push, logger: logger}
}

func (s *notificationService) Record(ctx context.Context, events ...Event) ([]model.Notification, error) {
	var rows []model.Notification
	for _, ev := range events {
		recipients, err := s.recipients(ctx, ev)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", ev.Type, err)
		}
		for _, rid := range recipients {
			rows = append(rows, model.Notification{
				RecipientID: rid,
				Type:        ev.Type,
				OrderID:     ev.OrderID,
				Payload:     datatypes.JSON(payload),
			})
		}
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to record notifications: %w", err)
	}
	return rows, nil
}

func (s *notificationService) recipients(ctx context.Context, ev Event) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range ev.Recipients {
		add(id)
	}
	if roles := eventRoles[ev.Type]; len(roles) > 0 {
		ids, err := s.users.ListIDsByRoles(ctx, roles)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s recipients: %w", ev.Type, err)
		}
		for _, id := range ids {
			add(id)
		}
	}
	return out, nil
}

// Publish never blocks the caller on delivery.
func (s *notificationService) Publish(notifications []model.Notification) {
	if s.push == nil {
		return
	}
	for _, n := range notifications {
		msg, err := json.Marshal(map[string]interface{}{
			"event":           n.Type,
			"notification_id": n.ID,
			"order_id":        n.OrderID,
			"data":            json.RawMessage(n.Payload),
		})
		if err != nil {
			s.logger.Warn("failed to encode notification", zap.String("type", n.Type), zap.Error(err))
			continue
		}
		s.push.Publish([]uuid.UUID{n.RecipientID}, msg)
	}
}

func (s *notificationService) ListForUser(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	rows, total, err := s.repo.ListForRecipient(ctx, actor.ID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	res := make([]NotificationResponse, 0, len(rows))
	for _, n := range rows {
		var orderID *string
		if n.OrderID != nil {
			s := n.OrderID.String()
			orderID = &s
		}
		res = append(res, NotificationResponse{
			ID:        n.ID.String(),
			Type:      n.Type,
			OrderID:   orderID,
			Payload:   json.RawMessage(n.Payload),
			Read:      n.ReadAt != nil,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	nid, err := parseID("id", id)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, nid, actor.ID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return apperror.NotFound("notification")
	}
	return nil
}
