package queue

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// NewClient регистрирует воркеры и создаёт river клиента на pgx пуле.
func NewClient(pool *pgxpool.Pool, deliverer Deliverer, maxWorkers int) (*river.Client[pgx.Tx], error) {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSettlementNotificationWorker(deliverer))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create river client: %w", err)
	}
	return client, nil
}
