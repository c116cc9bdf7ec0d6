package daemon

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/handlers"
	"github.com/netconfd/mod-netconfd/internal/ncmodel"
	"github.com/netconfd/mod-netconfd/internal/notify"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/rpcexec"
)

// fakeSession is a minimal ncclient.Session double for exercising the
// registry sweep path without a real SSH transport.
type fakeSession struct {
	id     uint64
	closed bool
}

func (f *fakeSession) Execute(context.Context, ncmodel.Request) (*ncmodel.RPCReply, error) {
	return nil, nil
}
func (f *fakeSession) ExecuteAsync(context.Context, ncmodel.Request, chan *ncmodel.RPCReply) error {
	return nil
}
func (f *fakeSession) Subscribe(context.Context, ncmodel.Request, chan *ncmodel.Notification) (*ncmodel.RPCReply, error) {
	return nil, nil
}
func (f *fakeSession) Close()                     { f.closed = true }
func (f *fakeSession) Healthy() bool               { return !f.closed }
func (f *fakeSession) ID() uint64                  { return f.id }
func (f *fakeSession) ServerCapabilities() []string { return nil }
func (f *fakeSession) Host() string                { return "device" }
func (f *fakeSession) Port() string                { return "830" }
func (f *fakeSession) User() string                { return "admin" }
func (f *fakeSession) SSHClient() *ssh.Client      { return nil }

func TestSweepOnceEvictsIdleEntries(t *testing.T) {
	reg := registry.New()
	fresh := &fakeSession{id: 1}
	stale := &fakeSession{id: 2}
	freshEntry := registry.NewEntry("fresh", fresh, nil, "h", "830", "u")
	reg.Insert(freshEntry)
	reg.Insert(registry.NewEntry("stale", stale, nil, "h", "830", "u"))

	time.Sleep(20 * time.Millisecond)
	freshEntry.Touch()

	sweepOnce(reg, 10*time.Millisecond, NoOpTrace)

	assert.NotNil(t, reg.Get("fresh"))
	assert.Nil(t, reg.Get("stale"))
	assert.False(t, fresh.closed)
	assert.True(t, stale.closed)
}

func TestCloseAllSessionsClosesAndEmptiesRegistry(t *testing.T) {
	reg := registry.New()
	a := &fakeSession{id: 1}
	b := &fakeSession{id: 2}
	reg.Insert(registry.NewEntry("a", a, nil, "h", "830", "u"))
	reg.Insert(registry.NewEntry("b", b, nil, "h", "830", "u"))

	closeAllSessions(reg)

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 0, reg.Len())
}

func TestRunAcceptsAndShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	deps := &handlers.Deps{
		Registry: registry.New(),
		Exec:     rpcexec.New(),
		Relay:    notify.NoopRelay{},
	}
	cfg := Config{SweepInterval: time.Hour, ShutdownGrace: 200 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Run(ctx, ln, deps, cfg, NoOpTrace)
		close(done)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
