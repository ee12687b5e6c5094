package util

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Lifecycle is owned by the process root. Components poll Running or watch Context.
type Lifecycle struct {
	running atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLifecycle(parent context.Context) *Lifecycle {
	ctx, cancel := context.WithCancel(parent)
	l := &Lifecycle{
		ctx:    ctx,
		cancel: cancel,
	}
	l.running.Store(true)
	return l
}

func (l *Lifecycle) Context() context.Context {
	return l.ctx
}

func (l *Lifecycle) Running() bool {
	return l.running.Load()
}

func (l *Lifecycle) Shutdown() {
	if l.running.CompareAndSwap(true, false) {
		l.cancel()
	}
}

// WaitSignal blocks until SIGINT/SIGTERM or until the lifecycle is shut down elsewhere.
func (l *Lifecycle) WaitSignal() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		l.Shutdown()
	case <-l.ctx.Done():
	}
	return nil
}
