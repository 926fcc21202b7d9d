package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/subscription-billing/internal"
)

type Worker struct {
	ID         int
	WorkerPool chan chan Message
	JobChannel chan Message
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Message, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Message),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Message)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case msg := <-w.JobChannel:
				w.Logger.Debug("worker delivering notification", "worker_id", w.ID, "entity_id", msg.RecipientEntityID)
				processFunc(msg)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	MaxWorkers  int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher delivers messages in the background through a fixed pool of
// workers. Messages still queued at Shutdown are delivered before it returns.
type Dispatcher struct {
	sender      Sender
	sendTimeout time.Duration
	logger      *slog.Logger

	jobQueue   chan Message
	workerPool chan chan Message
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	quit       chan struct{}
	wg         sync.WaitGroup
	once       sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	sendTimeout := config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender:      sender,
		sendTimeout: sendTimeout,
		logger:      logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Message, queueSize),
		workerPool: make(chan chan Message, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
		quit:       make(chan struct{}),
	}

	d.start()

	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.deliver)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.jobQueue:
			d.handoff(msg)
		case <-d.quit:
			for {
				select {
				case msg := <-d.jobQueue:
					d.handoff(msg)
				default:
					d.cancel()
					d.logger.Info("dispatcher shutting down")
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handoff(msg Message) {
	jobChannel := <-d.workerPool
	jobChannel <- msg
}

// Enqueue never blocks. It fails when the queue is full or the dispatcher
// has been shut down.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobQueue <- msg:
		d.logger.Debug("notification queued",
			"entity_id", msg.RecipientEntityID,
			"kind", msg.Kind,
			"queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("notification queue full, dropping message",
			"entity_id", msg.RecipientEntityID,
			"kind", msg.Kind,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := internal.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("notification delivery failed",
			"entity_id", msg.RecipientEntityID,
			"kind", msg.Kind,
			"error", err)
		return
	}
	d.logger.Debug("notification delivered", "entity_id", msg.RecipientEntityID, "kind", msg.Kind)
}

func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.logger.Info("shutting down notification dispatcher")
	close(d.quit)
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}
