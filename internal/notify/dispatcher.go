package notify

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/serviceerrs"
	"github.com/bookon-app/bookon/internal/utils/logger"
	"github.com/bookon-app/bookon/internal/utils/semaphore"
)

type gatewayClient interface {
	Send(ctx context.Context, ev Event) error
}

// Dispatcher drains the event queue with a bounded worker pool. When
// the gateway answers 429 all deliveries pause for its Retry-After
// before resuming.
type Dispatcher struct {
	client      gatewayClient
	events      <-chan Event
	maxInFlight uint64
	pauseCh     chan time.Duration
	sema        *semaphore.Semaphore
	wg          sync.WaitGroup
	pauseOnce   *sync.Once
}

func NewDispatcher(client gatewayClient, events <-chan Event, maxInFlight uint64) *Dispatcher {
	return &Dispatcher{
		client:      client,
		events:      events,
		maxInFlight: maxInFlight,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	d.sema = semaphore.New(d.maxInFlight)
	d.pauseCh = make(chan time.Duration, 1)
	d.pauseOnce = &sync.Once{}

	go d.supervise(ctx)
}

func (d *Dispatcher) supervise(ctx context.Context) {
	log := logger.FromContext(ctx).With("service", "notify")
	log.LogAttrs(ctx, slog.LevelInfo, "running")

	for {
		workerCtx, workerCancel := context.WithCancel(ctx)
		d.startWorkers(workerCtx)

		select {
		case <-ctx.Done():
			workerCancel()
			d.wg.Wait()
			log.LogAttrs(ctx, slog.LevelInfo, "stopped")
			return
		case pause := <-d.pauseCh:
			workerCancel()
			d.wg.Wait()
			d.pauseOnce = &sync.Once{}
			log.LogAttrs(ctx,
				slog.LevelWarn,
				"gateway rate limit hit, pausing deliveries",
				slog.Duration("pause", pause),
			)

			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

func (d *Dispatcher) startWorkers(ctx context.Context) {
	workerCount := runtime.NumCPU() * model.DefaultWorkerCountMultiplier
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	log := logger.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			if err := d.sema.AcquireWithTimeout(model.DefaultTimeout); err != nil {
				log.LogAttrs(ctx,
					slog.LevelWarn,
					"notification delivery skipped",
					slog.String("booking_id", ev.BookingID),
					slog.Any(model.KeyLoggerError, err),
				)
				continue
			}

			err := d.client.Send(ctx, ev)
			d.sema.Release()
			if err == nil {
				continue
			}

			var tmrErr *serviceerrs.TooManyRequestsError
			if ctx.Err() == nil && errors.As(err, &tmrErr) {
				d.pauseOnce.Do(func() {
					d.pauseCh <- tmrErr.RetryAfter
				})
				continue
			}
			log.LogAttrs(ctx,
				slog.LevelError,
				"failed to deliver notification",
				slog.String("booking_id", ev.BookingID),
				slog.Any(model.KeyLoggerError, err),
			)
		}
	}
}
