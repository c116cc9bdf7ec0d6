package rpcexec

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/ncclient"
	"github.com/netconfd/mod-netconfd/internal/ncmodel"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// fakeSession is a scriptable ncclient.Session double, letting each test
// drive the exact (reply, err) pair and optionally emit protocol errors
// through the call-scoped trace the way ncclient's real decoder would.
type fakeSession struct {
	reply       *ncmodel.RPCReply
	err         error
	protoErrors []string
	delay       time.Duration
	healthy     bool
	onExecute   func()
}

func (f *fakeSession) Execute(ctx context.Context, req ncmodel.Request) (*ncmodel.RPCReply, error) {
	if f.onExecute != nil {
		f.onExecute()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	trace := ncclient.ContextTrace(ctx)
	for _, m := range f.protoErrors {
		trace.ProtocolError(1, m)
	}
	return f.reply, f.err
}
func (f *fakeSession) ExecuteAsync(context.Context, ncmodel.Request, chan *ncmodel.RPCReply) error {
	return nil
}
func (f *fakeSession) Subscribe(context.Context, ncmodel.Request, chan *ncmodel.Notification) (*ncmodel.RPCReply, error) {
	return nil, nil
}
func (f *fakeSession) Close()                      {}
func (f *fakeSession) Healthy() bool                { return f.healthy }
func (f *fakeSession) ID() uint64                   { return 1 }
func (f *fakeSession) ServerCapabilities() []string { return nil }
func (f *fakeSession) Host() string                 { return "device" }
func (f *fakeSession) Port() string                 { return "830" }
func (f *fakeSession) User() string                 { return "admin" }
func (f *fakeSession) SSHClient() *ssh.Client       { return nil }

func entryWith(sess *fakeSession) *registry.Entry {
	return registry.NewEntry("k", sess, nil, "h", "830", "u")
}

func TestExecuteOKReply(t *testing.T) {
	ex := New()
	entry := entryWith(&fakeSession{reply: &ncmodel.RPCReply{Ok: true}, healthy: true})

	reply := ex.Execute(context.Background(), entry, "<commit/>", nil)
	assert.Equal(t, wire.ReplyOK, reply.Type)
}

func TestExecuteDataReply(t *testing.T) {
	ex := New()
	entry := entryWith(&fakeSession{reply: &ncmodel.RPCReply{Data: "<data><a/></data>"}, healthy: true})

	reply := ex.Execute(context.Background(), entry, "<get/>", nil)
	require.Equal(t, wire.ReplyData, reply.Type)
	assert.Contains(t, reply.Data, "<a/>")
}

func TestExecuteServerError(t *testing.T) {
	ex := New()
	rpcErr := ncmodel.RPCError{Severity: "error", Message: "bad request"}
	entry := entryWith(&fakeSession{
		reply:   &ncmodel.RPCReply{Errors: []ncmodel.RPCError{rpcErr}},
		err:     &rpcErr,
		healthy: true,
	})

	reply := ex.Execute(context.Background(), entry, "<edit-config/>", nil)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "bad request")
}

func TestExecuteTimeout(t *testing.T) {
	ex := &Executor{Timeout: 10 * time.Millisecond}
	entry := entryWith(&fakeSession{reply: &ncmodel.RPCReply{Ok: true}, healthy: true, delay: 100 * time.Millisecond})

	reply := ex.Execute(context.Background(), entry, "<get/>", nil)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "timeout expired")
}

func TestExecuteUnhealthyEvictsAndReportsFailure(t *testing.T) {
	ex := New()
	entry := entryWith(&fakeSession{err: io.ErrUnexpectedEOF, healthy: false})

	var evicted bool
	reply := ex.Execute(context.Background(), entry, "<get/>", func() { evicted = true })

	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "receiving rpc-reply failed")
	assert.True(t, evicted)
}

func TestExecuteSinkPopulatedWinsOverData(t *testing.T) {
	ex := New()
	entry := entryWith(&fakeSession{
		reply:       &ncmodel.RPCReply{Data: "<data><a/></data>"},
		healthy:     true,
		protoErrors: []string{"server warned about something"},
	})

	reply := ex.Execute(context.Background(), entry, "<get/>", nil)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "server warned about something")
}

func TestExecuteNilReplyNoErrorNoSink(t *testing.T) {
	ex := New()
	entry := entryWith(&fakeSession{healthy: true})

	reply := ex.Execute(context.Background(), entry, "<close-session/>", nil)
	assert.Equal(t, wire.ReplyOK, reply.Type)
}

// TestExecuteSerializesSameSession confirms §8's "at-most-one concurrent
// RPC per session" property: two callers sharing one entry must not have
// their sends overlap, even though each runs in its own goroutine.
func TestExecuteSerializesSameSession(t *testing.T) {
	ex := New()
	sess := &fakeSession{reply: &ncmodel.RPCReply{Ok: true}, healthy: true, delay: 20 * time.Millisecond}
	entry := entryWith(sess)

	var active int32
	var sawOverlap int32
	sess.onExecute = func() {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&sawOverlap, 1)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ex.Execute(context.Background(), entry, "<get/>", nil)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&sawOverlap), "concurrent requests on the same session overlapped their sends")
}
