package task

import (
	"context"
	"sync"

	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// Queue runs slow work on background workers and hands the results back to the stack goroutine,
// which applies them in RunPending.
type Queue struct {
	background chan func()
	deferred   chan func()

	nofWorkers int

	wg     sync.WaitGroup
	cancel context.CancelFunc

	log loggergoModel.LoggerInterface
}

func NewQueue(nofWorkers, depth int, log loggergoModel.LoggerInterface) *Queue {
	if nofWorkers <= 0 {
		nofWorkers = 1
	}
	return &Queue{
		background: make(chan func(), depth),
		deferred:   make(chan func(), depth),
		nofWorkers: nofWorkers,
		log:        log,
	}
}

func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.nofWorkers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case fn := <-q.background:
					q.log.Tracef("Worker %d running background task", id)
					fn()
				}
			}
		}(i)
	}
}

func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// EnqueueBackground schedules fn on a worker. It never blocks the caller and reports false when
// the queue is full and fn was not taken.
func (q *Queue) EnqueueBackground(fn func()) bool {
	select {
	case q.background <- fn:
		return true
	default:
		q.log.Warnf("Background task queue full, task not queued")
		return false
	}
}

// Defer hands fn back to the stack goroutine. It blocks while the deferred queue is full.
func (q *Queue) Defer(fn func()) {
	q.deferred <- fn
}

// RunPending applies every deferred result queued so far and returns how many ran.
func (q *Queue) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-q.deferred:
			fn()
			n++
		default:
			return n
		}
	}
}
