package handlers

import (
	"context"
	"strconv"

	"github.com/netconfd/mod-netconfd/internal/errsink"
	"github.com/netconfd/mod-netconfd/internal/ncclient"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// defaultNetconfPort is used when a CONNECT request omits "port".
const defaultNetconfPort = "830"

// Connect implements §4.5: the only handler allowed to create a session.
func Connect(ctx context.Context, d *Deps, req *wire.Request) *wire.Reply {
	host, hasHost := req.String("host")
	user, hasUser := req.String("user")
	if !hasHost || !hasUser {
		return wire.Error("insufficient input")
	}

	creds := ncclient.Credentials{
		Host:     host,
		Port:     req.StringOr("port", defaultNetconfPort),
		User:     user,
		Password: req.StringOr("pass", ""),
	}

	cfg := &ncclient.Config{}
	if d.SessionConfig != nil {
		*cfg = *d.SessionConfig
	}
	if caps, ok := req.StringSlice("capabilities"); ok && len(caps) > 0 {
		cfg.Capabilities = caps
	}

	sinkCtx, sink := errsink.NewContext(ctx)
	trace := *ncclient.DefaultTrace
	trace.ProtocolError = func(_ uint64, message string) { sink.Record(message) }
	callCtx := ncclient.WithTrace(sinkCtx, &trace)

	sess, err := ncclient.NewRPCSession(callCtx, creds, cfg)
	if err != nil {
		if !sink.Empty() {
			return wire.Error(sink.Messages()...)
		}
		return wire.Error("Connecting NETCONF server failed.")
	}

	key := strconv.FormatUint(sess.ID(), 10)
	entry := registry.NewEntry(key, sess, sess.SSHClient(), host, creds.Port, user)
	d.Registry.Insert(entry)

	return &wire.Reply{Type: wire.ReplyOK, Session: key}
}

// Disconnect implements the "disconnect" rule of §4.6: remove the entry
// from the registry and close the underlying session.
func Disconnect(d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	d.Registry.Remove(req.Session)
	entry.Session.Close()
	return wire.OK()
}
