package handlers

import (
	"context"

	"github.com/netconfd/mod-netconfd/internal/ncops"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// Lock implements the LOCK opcode.
func Lock(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	target, hasTarget := req.String("target")
	if !hasTarget || !isValidDatastoreName(target) {
		return wire.Error("Invalid target repository type requested.")
	}
	return d.Exec.Execute(ctx, entry, ncops.Lock(target), evictFunc(d, entry.Key))
}

// Unlock implements the UNLOCK opcode.
func Unlock(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	target, hasTarget := req.String("target")
	if !hasTarget || !isValidDatastoreName(target) {
		return wire.Error("Invalid target repository type requested.")
	}
	return d.Exec.Execute(ctx, entry, ncops.Unlock(target), evictFunc(d, entry.Key))
}

// KillSession implements the KILL opcode (§4.6): "session-id" names the
// NETCONF session to kill on the server, distinct from the local "session"
// field used to route the request to an entry.
func KillSession(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	id, ok := req.Uint64("session-id")
	if !ok {
		return wire.Error("Missing session-id for kill-session.")
	}
	return d.Exec.Execute(ctx, entry, ncops.KillSession(id), evictFunc(d, entry.Key))
}
