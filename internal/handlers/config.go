package handlers

import (
	"context"

	"github.com/netconfd/mod-netconfd/internal/ncops"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// CopyConfig implements the COPYCONFIG opcode (§4.6): target is required
// and validated; source defaults to inline config; at least one of source
// or config must be present.
func CopyConfig(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	target, hasTarget := req.String("target")
	if !hasTarget || !isValidDatastoreName(target) {
		return wire.Error("Invalid target repository type requested.")
	}

	source, hasSource := req.String("source")
	config, hasConfig := req.String("config")
	if !hasSource && !hasConfig {
		return wire.Error("Missing source for copy-config.")
	}

	var src *ncops.Datastore
	if hasSource && source != "" {
		if !isValidDatastoreName(source) {
			return wire.Error("Invalid source repository type requested.")
		}
		src = ncops.ByName(source)
	} else {
		src = ncops.ByConfig(config)
	}

	return d.Exec.Execute(ctx, entry, ncops.CopyConfig(src, ncops.ByName(target)), evictFunc(d, entry.Key))
}

// DeleteConfig implements the DELETECONFIG opcode.
func DeleteConfig(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	target, hasTarget := req.String("target")
	if !hasTarget || !isValidDatastoreName(target) {
		return wire.Error("Invalid target repository type requested.")
	}
	return d.Exec.Execute(ctx, entry, ncops.DeleteConfig(ncops.ByName(target)), evictFunc(d, entry.Key))
}

// Validate implements the VALIDATE opcode: target required; if target is
// url, the url parameter is also required.
func Validate(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	target, hasTarget := req.String("target")
	if !hasTarget || !isValidDatastoreName(target) {
		return wire.Error("Invalid source repository type requested.")
	}
	if target == "url" {
		if _, ok := req.String("url"); !ok {
			return wire.Error("Missing url for validate.")
		}
	}
	return d.Exec.Execute(ctx, entry, ncops.Validate(target), evictFunc(d, entry.Key))
}
