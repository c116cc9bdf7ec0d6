// Package daemon implements the accept loop (C8) and idle sweeper (C9):
// it owns the listening socket, spawns a worker per accepted client, and
// periodically asks the session registry to evict idle entries.
//
// The original design runs a dedicated accept thread doing a non-blocking
// accept with a 200ms sleep, so it can notice a termination flag between
// iterations. net.Listener.Accept blocks natively and has no non-blocking
// mode exposed to callers, so this implementation instead spawns a watcher
// goroutine that closes the listener when ctx is canceled, unblocking
// Accept directly — the same cooperative-cancellation substitution
// internal/worker makes for the per-client poll loop, per SPEC_FULL.md §9
// design note 5.
package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/netconfd/mod-netconfd/internal/handlers"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
	"github.com/netconfd/mod-netconfd/internal/worker"
)

// Run accepts clients on ln until ctx is canceled, spawning a worker per
// connection and sweeping idle registry entries every cfg.SweepInterval.
// It returns once every worker has exited or cfg.ShutdownGrace has
// elapsed, whichever comes first.
func Run(ctx context.Context, ln net.Listener, deps *handlers.Deps, cfg Config, trace *Trace) {
	if trace == nil {
		trace = NoOpTrace
	}
	cfg = WithDefaults(cfg)

	stopWatcher := make(chan struct{})
	defer close(stopWatcher)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stopWatcher:
		}
	}()

	var wg sync.WaitGroup
	go runSweeper(ctx, deps.Registry, cfg, trace)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			trace.Error("accept", "failed to accept client", err)
			continue
		}

		trace.ClientAccepted(conn.RemoteAddr().String())
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx, conn, deps, workerTrace(trace, conn))
		}()
	}

	waitWithGrace(&wg, cfg.ShutdownGrace)
	closeAllSessions(deps.Registry)
}

// closeAllSessions releases every session still registered once every
// worker has stopped, matching §4.8's termination sequence: "close all
// sessions, destroy locks, exit."
func closeAllSessions(reg *registry.Registry) {
	for _, key := range reg.Keys() {
		if e := reg.Remove(key); e != nil {
			e.Session.Close()
		}
	}
}

// waitWithGrace waits for wg, giving up after grace has elapsed (spec.md
// §4.8: "time-bounded-join all workers (5s ceiling)").
func waitWithGrace(wg *sync.WaitGroup, grace time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
	}
}

// runSweeper invokes registry.Sweep every cfg.SweepInterval until ctx is
// canceled (C9).
func runSweeper(ctx context.Context, reg *registry.Registry, cfg Config, trace *Trace) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(reg, cfg.IdleTimeout, trace)
		}
	}
}

func sweepOnce(reg *registry.Registry, idleTimeout time.Duration, trace *Trace) {
	trace.SweepStart()
	start := time.Now()
	cutoff := start.Add(-idleTimeout)

	evicted := reg.Sweep(cutoff, func(e *registry.Entry) {
		e.Session.Close()
	})

	trace.SweepDone(evicted, time.Since(start))
}

// workerTrace adapts the daemon's trace to the per-connection
// worker.Trace, reporting client-closed events through the daemon's own
// ClientClosed hook tagged with the connection's remote address.
func workerTrace(trace *Trace, conn net.Conn) *worker.Trace {
	remote := conn.RemoteAddr().String()
	return &worker.Trace{
		RequestStart: func(string, *wire.Request) {},
		RequestDone:  func(string, *wire.Reply) {},
		ClientClosed: func(err error) {
			trace.ClientClosed(remote, err)
		},
	}
}
