// Package runner collects background workers so main can wait for all
// of them on shutdown.
package runner

import (
	"context"
	"sync"
)

type Group struct {
	wg sync.WaitGroup
}

// Go starts fn and returns a channel that yields its final error once.
func (g *Group) Go(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		done <- fn(ctx)
		close(done)
	}()
	return done
}

// Wait blocks until every worker started with Go has returned.
func (g *Group) Wait() { g.wg.Wait() }
