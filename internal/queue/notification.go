// Package queue - фоновые задачи на river поверх PostgreSQL.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/goroutine"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

const insertTimeout = 5 * time.Second

// SettlementNotificationArgs - доставка события сделки участникам.
type SettlementNotificationArgs struct {
	Event models.SettlementEvent `json:"event"`
}

func (SettlementNotificationArgs) Kind() string { return "escrow_settlement_notification" }

func (SettlementNotificationArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 8}
}

// Deliverer сохраняет и рассылает событие. Реализуется NotificationService.
type Deliverer interface {
	DeliverSettlementEvent(ctx context.Context, event models.SettlementEvent) error
}

type SettlementNotificationWorker struct {
	river.WorkerDefaults[SettlementNotificationArgs]
	deliverer Deliverer
}

func NewSettlementNotificationWorker(d Deliverer) *SettlementNotificationWorker {
	return &SettlementNotificationWorker{deliverer: d}
}

func (w *SettlementNotificationWorker) Work(ctx context.Context, job *river.Job[SettlementNotificationArgs]) error {
	if err := w.deliverer.DeliverSettlementEvent(ctx, job.Args.Event); err != nil {
		return fmt.Errorf("deliver %s for job %s: %w", job.Args.Event.Event, job.Args.Event.JobID, err)
	}
	return nil
}

// Inserter - часть river.Client, нужная для постановки задач.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Notifier ставит уведомление в очередь. Если очередь недоступна, доставляет
// напрямую в фоне; расчёт сделки от этого не зависит.
type Notifier struct {
	inserter  Inserter
	deliverer Deliverer
}

func NewNotifier(inserter Inserter, deliverer Deliverer) *Notifier {
	return &Notifier{inserter: inserter, deliverer: deliverer}
}

func (n *Notifier) Notify(ctx context.Context, event models.SettlementEvent) error {
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), insertTimeout)
	defer cancel()

	_, err := n.inserter.Insert(insertCtx, SettlementNotificationArgs{Event: event}, nil)
	if err == nil {
		return nil
	}

	logger.WithFields(logrus.Fields{
		"job_id": event.JobID,
		"event":  event.Event,
		"error":  err.Error(),
	}).Warn("queue: insert failed, delivering in background")

	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		if err := n.deliverer.DeliverSettlementEvent(ctx, event); err != nil {
			logger.WithFields(logrus.Fields{
				"job_id": event.JobID,
				"event":  event.Event,
				"error":  err.Error(),
			}).Error("queue: notification lost")
		}
	})
	return fmt.Errorf("queue: insert notification: %w", err)
}
