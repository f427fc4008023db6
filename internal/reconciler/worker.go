package reconciler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
)

type job struct {
	order *order.Order
}

// worker registers its job channel with the pool whenever it is idle.
type worker struct {
	id         int
	workerPool chan chan job
	jobChannel chan job
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan job, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan job),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.workerPool <- w.jobChannel

			select {
			case j := <-w.jobChannel:
				w.logger.Debug("worker processing order", "worker_id", w.id, "gateway_order_id", j.order.GatewayOrderID)
				process(j)
			case <-ctx.Done():
				w.logger.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}
