// Command mod-netconfd is the NETCONF proxy daemon's process entrypoint: it
// parses flags, binds and adjusts ownership of the local front-end socket,
// wires the session registry, RPC executor and notifications relay, and
// runs the accept loop until SIGINT/SIGTERM (spec.md §9 design note 5,
// SPEC_FULL.md §9: signal.NotifyContext replaces the original daemon's
// polled termination flag).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"

	"github.com/netconfd/mod-netconfd/internal/daemon"
	"github.com/netconfd/mod-netconfd/internal/handlers"
	"github.com/netconfd/mod-netconfd/internal/ncclient"
	"github.com/netconfd/mod-netconfd/internal/notify"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/rpcexec"
)

func main() {
	cfg, owner, group := parseFlags()

	if err := run(cfg, owner, group); err != nil {
		log.Fatalf("mod-netconfd: %v", err)
	}
}

func parseFlags() (cfg daemon.Config, owner, group string) {
	cfg = *daemon.DefaultConfig

	flag.StringVar(&cfg.SocketPath, "socket", cfg.SocketPath, "local socket path")
	mode := flag.Uint("mode", uint(cfg.SocketMode), "socket file mode (decimal, or octal with a leading 0, e.g. 0666)")
	flag.StringVar(&owner, "owner", "", "socket owner user (optional)")
	flag.StringVar(&group, "group", "", "socket owner group (optional)")
	timeout := flag.Duration("rpc-timeout", cfg.RPCTimeout, "per-RPC timeout")
	idle := flag.Duration("idle-timeout", cfg.IdleTimeout, "session idle eviction timeout")
	sweep := flag.Duration("sweep-interval", cfg.SweepInterval, "idle sweep interval")
	flag.Parse()

	cfg.SocketMode = uint32(*mode)
	cfg.RPCTimeout = *timeout
	cfg.IdleTimeout = *idle
	cfg.SweepInterval = *sweep
	return cfg, owner, group
}

func run(cfg daemon.Config, owner, group string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := bindSocket(cfg.SocketPath, os.FileMode(cfg.SocketMode), owner, group)
	if err != nil {
		return fmt.Errorf("binding socket: %w", err)
	}
	defer os.Remove(cfg.SocketPath)

	deps := &handlers.Deps{
		Registry:      registry.New(),
		Exec:          &rpcexec.Executor{Timeout: cfg.RPCTimeout},
		Relay:         notify.NoopRelay{},
		SessionConfig: ncclient.DefaultConfig,
	}

	if err := deps.Relay.Start(ctx); err != nil {
		return fmt.Errorf("starting notifications relay: %w", err)
	}
	defer deps.Relay.Stop()

	log.Printf("mod-netconfd: listening on %s", cfg.SocketPath)
	daemon.Run(ctx, ln, deps, cfg, daemon.DefaultTrace)
	log.Printf("mod-netconfd: shut down")
	return nil
}

// bindSocket removes any stale socket file, listens on path, and applies
// the configured mode/ownership (spec.md §6: "mode is 0666; ownership may
// be adjusted to a configured user/group").
func bindSocket(path string, mode os.FileMode, owner, group string) (net.Listener, error) {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(path, mode); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	if owner != "" || group != "" {
		if err := chownSocket(path, owner, group); err != nil {
			ln.Close()
			return nil, err
		}
	}

	return ln, nil
}

func chownSocket(path, owner, group string) error {
	uid, gid := -1, -1

	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return fmt.Errorf("looking up owner %q: %w", owner, err)
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return err
		}
	}

	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return fmt.Errorf("looking up group %q: %w", group, err)
		}
		var err2 error
		gid, err2 = strconv.Atoi(g.Gid)
		if err2 != nil {
			return err2
		}
	}

	return os.Chown(path, uid, gid)
}
