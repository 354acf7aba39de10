package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTareaExpirada is reported when a task hits its time limit before fn
// declared itself done.
var ErrTareaExpirada = errors.New("tarea expirada")

// Tarea is a cancellable periodic job. It replaces ad-hoc timers: every
// Tarea ends exactly once, either because fn finished, the limit elapsed,
// the parent context was cancelled or Detener was called.
type Tarea struct {
	cancel context.CancelFunc
	hecho  chan struct{}

	mu  sync.Mutex
	err error
}

// Programar runs fn every intervalo until it returns done=true or an error.
// limite <= 0 means no limit. fn receives a context that is cancelled when
// the task ends.
func Programar(ctx context.Context, intervalo, limite time.Duration, fn func(ctx context.Context) (bool, error)) *Tarea {
	var (
		tctx   context.Context
		cancel context.CancelFunc
	)
	if limite > 0 {
		tctx, cancel = context.WithTimeout(ctx, limite)
	} else {
		tctx, cancel = context.WithCancel(ctx)
	}
	t := &Tarea{cancel: cancel, hecho: make(chan struct{})}

	go func() {
		defer close(t.hecho)
		defer cancel()

		ticker := time.NewTicker(intervalo)
		defer ticker.Stop()
		for {
			select {
			case <-tctx.Done():
				t.terminar(causa(ctx, tctx))
				return
			case <-ticker.C:
				listo, err := fn(tctx)
				if err != nil {
					t.terminar(err)
					return
				}
				if listo {
					return
				}
			}
		}
	}()
	return t
}

func causa(parent, tctx context.Context) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		return ErrTareaExpirada
	default:
		// Detener
		return nil
	}
}

func (t *Tarea) terminar(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

// Detener stops the task and waits for it to end. Safe to call many times.
func (t *Tarea) Detener() {
	t.cancel()
	<-t.hecho
}

// Hecho is closed once the task has ended.
func (t *Tarea) Hecho() <-chan struct{} { return t.hecho }

// Err reports why the task ended: nil when fn finished or Detener was
// called, ErrTareaExpirada on timeout, or fn's own error.
func (t *Tarea) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
