// Package handlers implements the daemon's per-opcode request handlers
// (C6): each extracts parameters from a decoded wire.Request, validates
// them, builds the NETCONF RPC via internal/ncops, runs it through
// internal/rpcexec, and shapes the wire.Reply. None of them touch the
// socket directly; internal/worker owns framing and decode/encode.
package handlers

import (
	"context"
	"net"

	"github.com/netconfd/mod-netconfd/internal/ncclient"
	"github.com/netconfd/mod-netconfd/internal/notify"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/rpcexec"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// Deps are the collaborators every handler needs: the session registry, the
// RPC executor, the notifications relay, and the client config used for
// fresh connects.
type Deps struct {
	Registry      *registry.Registry
	Exec          *rpcexec.Executor
	Relay         notify.Relay
	SessionConfig *ncclient.Config
}

// Dispatch routes req to the handler for its opcode, matching §4.6's
// dispatch contract: every opcode but connect requires a session, and a
// missing one is reported (and, for the worker, is a fatal protocol error
// that closes the client — see internal/worker).
func Dispatch(ctx context.Context, d *Deps, req *wire.Request) *wire.Reply {
	if req.Type == wire.OpConnect {
		return Connect(ctx, d, req)
	}

	if !req.HasSession() {
		return wire.Error("Missing session specification.")
	}

	entry := d.Registry.Get(req.Session)
	if entry == nil {
		return wire.Error("Unknown session to process.")
	}

	switch req.Type {
	case wire.OpDisconnect:
		return Disconnect(d, req, entry)
	case wire.OpGet:
		return Get(ctx, d, req, entry)
	case wire.OpGetConfig:
		return GetConfig(ctx, d, req, entry)
	case wire.OpEditConfig:
		return EditConfig(ctx, d, req, entry)
	case wire.OpCopyConfig:
		return CopyConfig(ctx, d, req, entry)
	case wire.OpDeleteConfig:
		return DeleteConfig(ctx, d, req, entry)
	case wire.OpLock:
		return Lock(ctx, d, req, entry)
	case wire.OpUnlock:
		return Unlock(ctx, d, req, entry)
	case wire.OpKill:
		return KillSession(ctx, d, req, entry)
	case wire.OpInfo:
		return Info(entry)
	case wire.OpGeneric:
		return Generic(ctx, d, req, entry)
	case wire.OpGetSchema:
		return GetSchema(ctx, d, req, entry)
	case wire.OpReloadHello:
		return ReloadHello(ctx, d, entry)
	case wire.OpNtfHistory:
		return NotificationHistory(ctx, d, req, entry)
	case wire.OpValidate:
		return Validate(ctx, d, req, entry)
	default:
		return wire.Error("Internal: Unknown request type.")
	}
}

// evictFunc returns the evict callback rpcexec.Executor invokes when it
// finds a session unhealthy: remove it from the registry and release its
// transport, completing the disconnect lifecycle (§3) the spec requires on
// eviction.
func evictFunc(d *Deps, key string) func() {
	return func() {
		if e := d.Registry.Remove(key); e != nil {
			e.Session.Close()
		}
	}
}

// dialTransientChannel opens a fresh ncclient.Session over an existing
// entry's SSH client, for reload-hello, which runs a brief exchange on the
// already-authenticated transport instead of reconnecting.
// Notification-history does not use it; it reads from d.Relay.
func dialTransientChannel(ctx context.Context, d *Deps, entry *registry.Entry) (ncclient.Session, error) {
	client := entry.Session.SSHClient()
	if client == nil {
		return nil, errSessionUnavailable
	}
	creds := ncclient.Credentials{Host: entry.Host, Port: entry.Port, User: entry.User}
	return ncclient.NewRPCSessionFromSSHClient(ctx, client, creds, d.SessionConfig)
}

var errSessionUnavailable = sshClientUnavailable{}

type sshClientUnavailable struct{}

func (sshClientUnavailable) Error() string { return "ncclient: no underlying SSH client" }

// hostPort is a small formatting helper shared by handlers that log or
// report on a target address.
func hostPort(host, port string) string { return net.JoinHostPort(host, port) }
