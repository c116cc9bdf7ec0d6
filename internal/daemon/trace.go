package daemon

import (
	"context"
	"log"
	"time"

	"github.com/imdario/mergo"
)

type daemonTraceContextKey struct{}

// ContextTrace returns the Trace installed on ctx, merged over NoOpTrace so
// every field is safely callable, mirroring ncclient.ContextTrace.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(daemonTraceContextKey{}).(*Trace)
	if trace == nil {
		return NoOpTrace
	}
	merged := *trace
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}

// WithTrace returns a context carrying trace.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, daemonTraceContextKey{}, trace)
}

// Trace defines the hooks the accept loop and idle sweeper report through.
type Trace struct {
	ClientAccepted func(remote string)
	ClientClosed   func(remote string, err error)
	SweepStart     func()
	SweepDone      func(evicted int, d time.Duration)
	Error          func(context, msg string, err error)
}

// NoOpTrace does nothing for every hook.
var NoOpTrace = &Trace{
	ClientAccepted: func(string) {},
	ClientClosed:   func(string, error) {},
	SweepStart:     func() {},
	SweepDone:      func(int, time.Duration) {},
	Error:          func(string, string, error) {},
}

// DefaultTrace logs through the standard library logger, the same ambient
// logging convention internal/ncclient uses (no third-party logger is
// retrieved anywhere in this module's dependency pack).
var DefaultTrace = &Trace{
	ClientAccepted: func(remote string) {
		log.Printf("daemon: client accepted remote=%s", remote)
	},
	ClientClosed: func(remote string, err error) {
		log.Printf("daemon: client closed remote=%s err=%v", remote, err)
	},
	SweepStart: func() {},
	SweepDone: func(evicted int, d time.Duration) {
		if evicted > 0 {
			log.Printf("daemon: idle sweep evicted=%d took=%s", evicted, d)
		}
	},
	Error: func(context, msg string, err error) {
		log.Printf("daemon: %s: %s: %v", context, msg, err)
	},
}
