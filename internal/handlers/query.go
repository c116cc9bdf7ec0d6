package handlers

import (
	"context"

	"github.com/netconfd/mod-netconfd/internal/ncops"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// Get implements the GET opcode: <get> with an optional subtree filter.
func Get(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	filter, _ := req.String("filter")
	reply := d.Exec.Execute(ctx, entry, ncops.Get(filterArg(filter)), evictFunc(d, entry.Key))
	return unwrapDataReply(reply)
}

// GetConfig implements the GETCONFIG opcode: <get-config> against a
// validated source datastore.
func GetConfig(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	source, _ := req.String("source")
	if !isReadableDatastore(source) {
		return wire.Error("Invalid source repository type requested.")
	}
	filter, _ := req.String("filter")
	reply := d.Exec.Execute(ctx, entry, ncops.GetConfig(source, filterArg(filter)), evictFunc(d, entry.Key))
	return unwrapDataReply(reply)
}

// GetSchema implements the GETSCHEMA opcode.
func GetSchema(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	id, ok := req.String("identifier")
	if !ok {
		return wire.Error("No identifier for get-schema supplied.")
	}
	version := req.StringOr("version", "")
	format := req.StringOr("format", "")

	reply := d.Exec.Execute(ctx, entry, ncops.GetSchema(id, version, format), evictFunc(d, entry.Key))
	return unwrapDataReply(reply)
}

// filterArg turns an empty filter string into a nil interface so
// ncops.Get/GetConfig omit the <filter> element entirely, rather than
// sending an empty one.
func filterArg(filter string) interface{} {
	if filter == "" {
		return nil
	}
	return filter
}

// isReadableDatastore restricts get-config's source to the three
// datastores a device actually holds configuration in; url/config (valid
// general datastore-enum members per §4.6) describe where new content
// comes from on a write, not a readable store, so GetConfig rejects them
// here even though ncops.ByName would happily build the element.
func isReadableDatastore(name string) bool {
	switch name {
	case "running", "startup", "candidate":
		return true
	default:
		return false
	}
}

// unwrapDataReply strips the <get>/<get-config>/<get-schema> reply's own
// wrapping element off a data reply, so the wire Data field carries the
// operation's content rather than an extra shell. A DATA-classified reply
// whose unwrapped body is empty is reported as the spec's dedicated
// "no data from reply" error (§4.4's classification table) rather than an
// empty data reply.
func unwrapDataReply(reply *wire.Reply) *wire.Reply {
	if reply.Type != wire.ReplyData {
		return reply
	}
	content := ncops.UnwrapData(reply.Data)
	if content == "" {
		return wire.Error("no data from reply")
	}
	reply.Data = content
	return reply
}
