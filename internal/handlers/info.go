package handlers

import (
	"context"

	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// Info implements the INFO opcode: the cached hello snapshot, never
// touching the wire (§4.6: "returns the cached snapshot; never touches the
// wire").
func Info(entry *registry.Entry) *wire.Reply {
	snap := entry.Snapshot()
	return &wire.Reply{
		Type:         wire.ReplyOK,
		SID:          snap.SID,
		Version:      snap.Version,
		Host:         snap.Host,
		Port:         snap.Port,
		User:         snap.User,
		Capabilities: snap.Capabilities,
	}
}

// ReloadHello implements the RELOADHELLO opcode: opens a transient channel
// on the existing SSH transport, performs a fresh hello exchange, rebuilds
// the cached snapshot, and closes the channel. The session id cached at
// connect time is preserved across the reload (§4.6).
func ReloadHello(ctx context.Context, d *Deps, entry *registry.Entry) *wire.Reply {
	transient, err := dialTransientChannel(ctx, d, entry)
	if err != nil {
		return wire.Error("Reload hello failed: " + err.Error())
	}
	defer transient.Close()

	entry.SetCapabilities(transient.ServerCapabilities())
	return Info(entry)
}

// NotificationHistory implements the NTF_GETHISTORY opcode: subscribes for
// the window [now+from, now+to] (seconds, possibly negative) via the
// notifications relay and replays whatever it collected.
func NotificationHistory(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	from, _ := req.Int("from")
	to, _ := req.Int("to")

	history, err := d.Relay.CollectHistory(entry.Snapshot().SID, from, to)
	if err != nil {
		return wire.Error(err.Error())
	}

	notifications := make([]wire.Notification, len(history))
	for i, h := range history {
		notifications[i] = wire.Notification{EventTime: h.EventTime, Content: h.Content}
	}
	return &wire.Reply{Type: wire.ReplyOK, Notifications: notifications}
}

// Generic implements the GENERIC opcode: an arbitrary RPC payload supplied
// verbatim as "content", sent as-is rather than built by internal/ncops.
func Generic(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	content, ok := req.String("content")
	if !ok {
		return wire.Error("Missing content for generic RPC.")
	}
	reply := d.Exec.Execute(ctx, entry, content, evictFunc(d, entry.Key))
	return unwrapDataReply(reply)
}
