package pool

import (
	"errors"
	"fmt"
	"sync"

	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

var (
	ErrPoolExhausted = errors.New("buffer pool exhausted")
	ErrNotInUse      = errors.New("buffer not in use")
)

// Pool is a bounded preallocated object pool. Every object is either in the free list or in the used set.
type Pool[T any] struct {
	mtx  sync.Mutex
	cond *sync.Cond

	available []*T
	used      map[*T]string

	capacity     int
	lowWaterMark int
	lowWater     bool

	onChange func(available int)

	log loggergoModel.LoggerInterface
}

func NewPool[T any](capacity int, newFn func() *T, log loggergoModel.LoggerInterface) (*Pool[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid pool capacity %d", capacity)
	}

	p := &Pool[T]{
		available:    make([]*T, 0, capacity),
		used:         make(map[*T]string, capacity),
		capacity:     capacity,
		lowWaterMark: lowWaterMark(capacity),
		log:          log,
	}
	p.cond = sync.NewCond(&p.mtx)

	for i := 0; i < capacity; i++ {
		p.available = append(p.available, newFn())
	}

	return p, nil
}

// lowWaterMark is 5% of capacity, rounded up so that small pools still warn when they run dry.
func lowWaterMark(capacity int) int {
	return max(1, (capacity*5+99)/100)
}

// OnChange registers a callback invoked, with the lock held, after every allocate and deallocate.
func (p *Pool[T]) OnChange(fn func(available int)) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.onChange = fn
}

func (p *Pool[T]) Allocate(tag string, blocking bool) (*T, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for len(p.available) == 0 {
		if !blocking {
			p.log.Errorf("Pool exhausted (%d/%d used), allocation for %s failed", len(p.used), p.capacity, tag)
			return nil, ErrPoolExhausted
		}
		p.cond.Wait()
	}

	last := len(p.available) - 1
	obj := p.available[last]
	p.available[last] = nil
	p.available = p.available[:last]
	p.used[obj] = tag

	if len(p.available) < p.lowWaterMark {
		if !p.lowWater {
			p.log.Warnf("Pool low water mark reached: %d of %d available", len(p.available), p.capacity)
			p.lowWater = true
		}
	}

	p.notify()
	return obj, nil
}

func (p *Pool[T]) Deallocate(obj *T) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if obj == nil {
		p.log.Errorf("Deallocating nil buffer")
		return ErrNotInUse
	}
	if _, exists := p.used[obj]; !exists {
		p.log.Errorf("Deallocating buffer %p that is not in use", obj)
		return ErrNotInUse
	}

	delete(p.used, obj)
	p.available = append(p.available, obj)
	if len(p.available) >= p.lowWaterMark {
		p.lowWater = false
	}

	p.notify()
	p.cond.Signal()
	return nil
}

func (p *Pool[T]) notify() {
	if p.onChange != nil {
		p.onChange(len(p.available))
	}
}

func (p *Pool[T]) Available() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.available)
}

func (p *Pool[T]) Used() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.used)
}

// Stats returns free and used counts under a single lock.
func (p *Pool[T]) Stats() (available int, used int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.available), len(p.used)
}

func (p *Pool[T]) Capacity() int {
	return p.capacity
}

// Tags returns the allocation tag of every object in use, for diagnostics.
func (p *Pool[T]) Tags() map[string]int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	tags := make(map[string]int)
	for _, tag := range p.used {
		tags[tag]++
	}
	return tags
}
