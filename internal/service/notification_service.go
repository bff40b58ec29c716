package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, userIDs []uuid.UUID, payload []byte) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Publisher доставляет событие в открытые подключения пользователя.
type Publisher interface {
	Publish(userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления участников и пушит их в WebSocket.
type NotificationService struct {
	repo      NotificationRepository
	publisher Publisher
}

// NewNotificationService создаёт новый сервис уведомлений. publisher может быть nil.
func NewNotificationService(repo NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// CreateNotification создаёт новое уведомление.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	payloadBytes, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  userID,
		Payload: payloadBytes,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.push(userID, event, data)
	return notification, nil
}

// DeliverSettlementEvent сохраняет событие сделки обоим участникам и пушит его онлайн.
// Ошибка хранилища возвращается, чтобы задача очереди была повторена.
func (s *NotificationService) DeliverSettlementEvent(ctx context.Context, event models.SettlementEvent) error {
	payload, err := json.Marshal(map[string]any{
		"event": event.Event,
		"data":  event,
	})
	if err != nil {
		return fmt.Errorf("notification service: marshal event %w", err)
	}

	recipients := event.Recipients()
	if err := s.repo.CreateBatch(ctx, recipients, payload); err != nil {
		return err
	}

	for _, userID := range recipients {
		s.push(userID, event.Event, event)
	}
	return nil
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return storeError(s.repo.MarkAsRead(ctx, id, userID))
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) push(userID uuid.UUID, event string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(userID, event, data); err != nil {
		logger.WithFields(logrus.Fields{"user_id": userID, "event": event, "error": err.Error()}).Warn("notification service: live push failed")
	}
}
