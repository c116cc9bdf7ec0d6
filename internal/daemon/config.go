package daemon

import (
	"time"

	"github.com/imdario/mergo"
)

// Config controls the daemon's socket, timing, and ownership behaviour. A
// caller-supplied Config is merged over DefaultConfig with mergo, the same
// pattern internal/ncclient.Config uses over its own DefaultConfig.
type Config struct {
	// SocketPath is the local stream socket the accept loop listens on.
	SocketPath string
	// SocketMode is the filesystem permission bits applied after bind.
	SocketMode uint32
	// SocketOwner and SocketGroup name an owner user and group for the
	// socket; empty means leave ownership as created. Run does not read
	// them; cmd/mod-netconfd applies ownership from its -owner/-group flags.
	SocketOwner string
	SocketGroup string

	// RPCTimeout bounds internal/rpcexec.Executor's per-call wait.
	RPCTimeout time.Duration
	// IdleTimeout is how long a session may sit unused before the sweeper
	// evicts it (C9).
	IdleTimeout time.Duration
	// SweepInterval is how often the accept loop invokes the sweeper.
	SweepInterval time.Duration
	// AcceptPollInterval mirrors the original non-blocking accept loop's
	// sleep between polls. Run does not read it: Go's listener Accept blocks
	// natively and Run closes the listener when ctx is canceled.
	AcceptPollInterval time.Duration
	// ShutdownGrace bounds how long Run waits for in-flight workers to
	// finish once ctx is canceled before returning anyway.
	ShutdownGrace time.Duration
}

// DefaultConfig mirrors spec.md §6/§4.8's defaults: 5s RPC timeout, 3600s
// idle timeout, 10s sweep interval, 200ms accept poll, 5s shutdown grace,
// mode 0666 with no ownership change.
var DefaultConfig = &Config{
	SocketPath:         "/var/run/mod_netconf.sock",
	SocketMode:         0666,
	RPCTimeout:         5 * time.Second,
	IdleTimeout:        3600 * time.Second,
	SweepInterval:      10 * time.Second,
	AcceptPollInterval: 200 * time.Millisecond,
	ShutdownGrace:      5 * time.Second,
}

// WithDefaults returns a copy of cfg with zero-valued fields filled in from
// DefaultConfig.
func WithDefaults(cfg Config) Config {
	_ = mergo.Merge(&cfg, DefaultConfig)
	return cfg
}
