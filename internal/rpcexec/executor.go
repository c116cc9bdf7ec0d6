// Package rpcexec implements the RPC executor (C5): it sends one NETCONF
// request on a registered session, waits for the reply or a timeout, and
// classifies the outcome into the wire reply shapes the front-end protocol
// defines. This is the daemon's busiest piece of glue, matching the
// classification table the component design lays out.
package rpcexec

import (
	"context"
	"io"
	"time"

	"github.com/netconfd/mod-netconfd/internal/errsink"
	"github.com/netconfd/mod-netconfd/internal/ncclient"
	"github.com/netconfd/mod-netconfd/internal/ncmodel"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// DefaultTimeout bounds how long Execute waits for a reply before reporting
// WOULDBLOCK, matching the original daemon's fixed RPC timeout.
const DefaultTimeout = 5 * time.Second

// Executor runs NETCONF RPCs against registered sessions.
type Executor struct {
	Timeout time.Duration
	Trace   *ncclient.Trace
}

// New returns an Executor with the default timeout.
func New() *Executor {
	return &Executor{Timeout: DefaultTimeout}
}

// Execute sends req on entry's session and returns the front-end wire
// reply. evict is called if the session is found to be unhealthy, so the
// caller (a handler, or the worker loop) can drop it from the registry;
// evict may be nil.
//
// Per §4.4 steps 3-6, entry's lock is acquired before last_activity is
// updated and the RPC is submitted, and released only once the reply (or
// timeout) is in hand — classification (step 7) runs outside the lock, so
// concurrent RPCs on other sessions are never serialized by it, but no
// other request on this session may send while this one is in flight
// (§8's "at-most-one concurrent RPC per session").
func (ex *Executor) Execute(ctx context.Context, entry *registry.Entry, req ncmodel.Request, evict func()) *wire.Reply {
	timeout := ex.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	sinkCtx, sink := errsink.NewContext(ctx)
	trace := ex.installedTrace(sink)
	callCtx := ncclient.WithTrace(sinkCtx, trace)

	entry.Lock()
	entry.TouchLocked()

	type result struct {
		reply *ncmodel.RPCReply
		err   error
	}
	done := make(chan result, 1)

	go func() {
		reply, err := entry.Session.Execute(callCtx, req)
		done <- result{reply, err}
	}()

	select {
	case r := <-done:
		entry.Unlock()
		return ex.classify(r.reply, r.err, sink, entry, evict)
	case <-time.After(timeout):
		entry.Unlock()
		return wire.Error("timeout expired")
	}
}

func (ex *Executor) installedTrace(sink *errsink.Sink) *ncclient.Trace {
	base := ex.Trace
	if base == nil {
		base = ncclient.NoOpTrace
	}
	merged := *base
	merged.ProtocolError = func(sid uint64, message string) {
		sink.Record(message)
		if base.ProtocolError != nil {
			base.ProtocolError(sid, message)
		}
	}
	return &merged
}

// classify implements the reply-classification table (§4.4): an unhealthy
// session is evicted and reported as "receiving rpc-reply failed"; a
// server-reported rpc-error (any severity, since its mere presence is what
// makes the library classify the message as ERROR rather than OK/DATA)
// wins over everything else; the call-scoped error sink, if populated,
// takes precedence the same way (§4.2: "if the sink is populated alongside
// an RPC-level failure, the sink wins"); otherwise the reply's root
// element decides between DATA and OK.
func (ex *Executor) classify(reply *ncmodel.RPCReply, err error, sink *errsink.Sink, entry *registry.Entry, evict func()) *wire.Reply {
	if err == io.ErrUnexpectedEOF {
		if evict != nil {
			evict()
		}
		return wire.Error("receiving rpc-reply failed")
	}

	if reply == nil {
		if !sink.Empty() {
			return wire.Error(sink.Messages()...)
		}
		if err != nil {
			return wire.Error(err.Error())
		}
		return wire.OK()
	}

	if len(reply.Errors) > 0 {
		msgs := make([]string, 0, len(reply.Errors))
		for _, e := range reply.Errors {
			msgs = append(msgs, e.Message)
		}
		return wire.Error(msgs...)
	}

	if !sink.Empty() {
		return wire.Error(sink.Messages()...)
	}

	if ncmodel.ReplyKind(reply) == "data" {
		return wire.DataReply(reply.Data)
	}
	return wire.OK()
}
