package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, limit, offset int, unreadOnly bool) ([]models.Alert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// Alerter - канал сигналов оператору. Сбой канала не влияет на вызывающего.
type Alerter interface {
	Raise(ctx context.Context, level models.AlertLevel, kind, message string, metadata map[string]any)
}

// AlertService пишет алерт в лог и сохраняет его для панели оператора.
type AlertService struct {
	repo        AlertRepository
	dedup       *CacheService
	dedupWindow time.Duration
}

func NewAlertService(repo AlertRepository) *AlertService {
	return &AlertService{repo: repo}
}

// WithDedup включает подавление повторов: алерт того же уровня и вида по тому же
// заказу сохраняется не чаще раза за window. В лог попадает каждый.
func (s *AlertService) WithDedup(cache *CacheService, window time.Duration) *AlertService {
	s.dedup = cache
	s.dedupWindow = window
	return s
}

func (s *AlertService) Raise(ctx context.Context, level models.AlertLevel, kind, message string, metadata map[string]any) {
	fields := logrus.Fields{"alert_kind": kind, "alert_level": level}
	for k, v := range metadata {
		fields[k] = v
	}
	entry := logger.WithFields(fields)
	switch level {
	case models.AlertLevelCritical:
		entry.Error(message)
	case models.AlertLevelWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}

	if s.duplicate(level, kind, metadata) {
		entry.Debug("alert service: повтор в окне подавления не сохранён")
		return
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		raw = []byte("{}")
	}
	alert := &models.Alert{Level: level, Kind: kind, Message: message, Metadata: raw}
	if err := s.repo.Create(ctx, alert); err != nil {
		logger.WithFields(logrus.Fields{"alert_kind": kind, "error": err.Error()}).Error("alert service: не удалось сохранить алерт")
	}
}

func (s *AlertService) duplicate(level models.AlertLevel, kind string, metadata map[string]any) bool {
	if s.dedup == nil {
		return false
	}
	jobID, ok := metadata["job_id"]
	if !ok {
		return false
	}
	key := fmt.Sprintf("alert:%s:%s:%v", level, kind, jobID)
	return !s.dedup.Remember(key, s.dedupWindow)
}

// List возвращает алерты для панели оператора.
func (s *AlertService) List(ctx context.Context, limit, offset int, unreadOnly bool) ([]models.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, unreadOnly)
}

func (s *AlertService) MarkRead(ctx context.Context, id uuid.UUID) error {
	return storeError(s.repo.MarkRead(ctx, id))
}
