// Package registry implements the session registry described by the
// daemon's component design (C3/C4): a map of front-end session keys to the
// NETCONF client sessions backing them, guarded by a registry-wide
// reader/writer lock plus a per-entry mutex, matching the nested-lock
// discipline the spec calls out — the registry lock is only ever held long
// enough to find or install an entry; the entry's own lock then guards the
// fields that change while an RPC is in flight.
package registry

import (
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/ncclient"
	"github.com/netconfd/mod-netconfd/internal/ncmodel"
)

// Entry is one managed NETCONF session, keyed in the Registry by the
// front-end session identifier the daemon hands back from CONNECT.
type Entry struct {
	Key string

	mu sync.Mutex

	Session   ncclient.Session
	SSHClient *ssh.Client

	Host string
	Port string
	User string

	lastActivity time.Time

	// capabilities is the cached hello snapshot's capability list (§3's
	// hello_snapshot), populated at connect and refreshed in place by
	// reload-hello; the session id and connect parameters never change
	// for the life of the entry, so only this field needs to move.
	capabilities []string
}

// HelloSnapshot is the JSON-shaped cached hello info an Info request
// returns and a ReloadHello request rebuilds (§3's hello_snapshot).
type HelloSnapshot struct {
	SID          uint64
	Version      string
	Host         string
	Port         string
	User         string
	Capabilities []string
}

// NewEntry builds an Entry for a freshly connected session.
func NewEntry(key string, sess ncclient.Session, sshClient *ssh.Client, host, port, user string) *Entry {
	return &Entry{
		Key:          key,
		Session:      sess,
		SSHClient:    sshClient,
		Host:         host,
		Port:         port,
		User:         user,
		lastActivity: now(),
		capabilities: sess.ServerCapabilities(),
	}
}

// Snapshot returns the entry's cached hello info, built without touching
// the wire (§4.6's "info" rule).
func (e *Entry) Snapshot() HelloSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	version := "1.0"
	if ncmodel.PeerSupportsChunkedFraming(e.capabilities) {
		version = "1.1"
	}
	return HelloSnapshot{
		SID:          e.Session.ID(),
		Version:      version,
		Host:         e.Host,
		Port:         e.Port,
		User:         e.User,
		Capabilities: append([]string(nil), e.capabilities...),
	}
}

// SetCapabilities replaces the cached capability list, used by reload-hello
// after a fresh hello exchange on a transient channel (§4.6); the session
// id and connect parameters are preserved across the reload.
func (e *Entry) SetCapabilities(caps []string) {
	e.mu.Lock()
	e.capabilities = caps
	e.mu.Unlock()
}

// Lock acquires the entry's own lock, held for the duration of any RPC on
// this session (§3, §4.4 steps 3/6) and by Touch/TouchLocked/IdleSince for
// any read or write of the entry's mutable fields. Callers must never hold
// the registry's lock while blocked on an entry lock for longer than it
// takes to look the entry up; long-running work (an RPC round trip)
// happens with only the entry lock held.
func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

// Touch records RPC activity against the entry, resetting its idle clock.
func (e *Entry) Touch() {
	e.mu.Lock()
	e.lastActivity = now()
	e.mu.Unlock()
}

// TouchLocked is Touch's counterpart for a caller that already holds the
// entry's lock (see Lock) — rpcexec.Executor calls this immediately after
// Lock to implement §4.4 step 4 ("update last_activity") before submitting
// the RPC in step 5, without re-entering mu.
func (e *Entry) TouchLocked() {
	e.lastActivity = now()
}

// IdleSince reports whether the entry has been idle since before cutoff.
func (e *Entry) IdleSince(cutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActivity.Before(cutoff)
}

// now is a var so tests can substitute a deterministic clock.
var now = time.Now
