// Package worker implements the per-client worker loop (C7): decode one
// framed request, dispatch it through internal/handlers, encode the reply,
// repeat until the client closes, a fatal protocol error occurs, or the
// daemon is terminating.
//
// The original design polls the client socket with a 1s timeout so a
// worker can notice a termination flag between requests. wire.Decoder
// collapses every read error - including a read-deadline timeout - into
// the single sentinel wire.ErrNoMessage, so a timeout cannot be told apart
// from a broken connection at that layer. This loop instead watches ctx
// and closes the connection out from under a blocked Decode, the
// idiomatic Go substitute for a polled flag (SPEC_FULL.md §9 note 5).
package worker

import (
	"context"
	"errors"
	"net"

	"github.com/google/uuid"

	"github.com/netconfd/mod-netconfd/internal/handlers"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// Run services one client connection until it closes, a fatal protocol
// error is reported, or ctx is canceled. It never returns an error; any
// failure worth recording reaches trace.ClientClosed.
func Run(ctx context.Context, conn net.Conn, deps *handlers.Deps, trace *Trace) {
	if trace == nil {
		trace = NoOpTrace
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	dec := wire.NewDecoder(conn)
	enc := wire.NewEncoder(conn)

	for {
		doc, err := dec.Decode()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				trace.ClientClosed(ctxErr)
			} else {
				trace.ClientClosed(err)
			}
			return
		}

		req, err := wire.DecodeRequest(doc)
		if err != nil {
			// Malformed JSON: drop silently and keep serving the client
			// (§4.7 step d).
			continue
		}

		corrID := uuid.NewString()
		trace.RequestStart(corrID, req)

		if !req.HasType() {
			if !writeReply(enc, wire.Error("Missing operation type specified."), trace, corrID) {
				return
			}
			continue
		}

		if req.Type != wire.OpConnect && !req.HasSession() {
			writeReply(enc, wire.Error("Missing session specification."), trace, corrID)
			trace.ClientClosed(errMissingSession)
			return
		}

		reply := handlers.Dispatch(ctx, deps, req)
		if !writeReply(enc, reply, trace, corrID) {
			return
		}
	}
}

// writeReply encodes and writes reply, reporting and swallowing the error
// through trace rather than returning it: a write failure means the client
// is gone, which the next Decode would discover anyway, but there's no
// reply left to send for this request so the loop must exit now.
func writeReply(enc *wire.Encoder, reply *wire.Reply, trace *Trace, corrID string) bool {
	trace.RequestDone(corrID, reply)
	doc, err := wire.Encode(reply)
	if err != nil {
		trace.ClientClosed(err)
		return false
	}
	if err := enc.Encode(doc); err != nil {
		trace.ClientClosed(err)
		return false
	}
	return true
}

var errMissingSession = errors.New("worker: missing session specification")
