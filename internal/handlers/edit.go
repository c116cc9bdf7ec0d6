package handlers

import (
	"context"

	"github.com/netconfd/mod-netconfd/internal/ncops"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// defaultTestOption is used when edit-config omits "test-option" (§4.6).
const defaultTestOption = "testset"

// EditConfig implements the EDITCONFIG opcode's parameter rules (§4.6):
// default-operation/error-option/test-option enums, a source that defaults
// to inline "config", and the url/uri-source fallback.
func EditConfig(ctx context.Context, d *Deps, req *wire.Request, entry *registry.Entry) *wire.Reply {
	target, hasTarget := req.String("target")
	if !hasTarget || !isValidDatastoreName(target) {
		return wire.Error("Invalid target repository type requested.")
	}

	testOption := req.StringOr("test-option", defaultTestOption)
	if !isValidTestOption(testOption) {
		return wire.Error("Invalid test-option requested.")
	}
	opts := []ncops.EditOption{ncops.TestOption(testOption)}

	if op, ok := req.String("default-operation"); ok {
		if !isValidDefaultOperation(op) {
			return wire.Error("Invalid default-operation requested.")
		}
		opts = append(opts, ncops.DefaultOperation(op))
	}
	if opt, ok := req.String("error-option"); ok {
		if !isValidErrorOption(opt) {
			return wire.Error("Invalid error-option requested.")
		}
		opts = append(opts, ncops.ErrorOption(opt))
	}

	source := req.StringOr("source", "config")
	var rpc interface{}
	if source == "url" {
		rpc = ncops.EditConfigURL(target, req.StringOr("uri-source", ""), opts...)
	} else {
		config, hasConfig := req.String("config")
		if !hasConfig {
			return wire.Error("Missing config content for edit-config.")
		}
		rpc = ncops.EditConfig(target, config, opts...)
	}

	return d.Exec.Execute(ctx, entry, rpc, evictFunc(d, entry.Key))
}
