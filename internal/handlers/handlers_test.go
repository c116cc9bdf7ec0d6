package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/ncmodel"
	"github.com/netconfd/mod-netconfd/internal/notify"
	"github.com/netconfd/mod-netconfd/internal/registry"
	"github.com/netconfd/mod-netconfd/internal/rpcexec"
	"github.com/netconfd/mod-netconfd/internal/wire"
)

// fakeSession is a scriptable ncclient.Session double for handler tests
// that need to drive an RPC through rpcexec.Executor without a live
// NETCONF transport.
type fakeSession struct {
	reply *ncmodel.RPCReply
	err   error
}

func (f *fakeSession) Execute(context.Context, ncmodel.Request) (*ncmodel.RPCReply, error) {
	return f.reply, f.err
}
func (f *fakeSession) ExecuteAsync(context.Context, ncmodel.Request, chan *ncmodel.RPCReply) error {
	return nil
}
func (f *fakeSession) Subscribe(context.Context, ncmodel.Request, chan *ncmodel.Notification) (*ncmodel.RPCReply, error) {
	return nil, nil
}
func (f *fakeSession) Close()                      {}
func (f *fakeSession) Healthy() bool                { return true }
func (f *fakeSession) ID() uint64                   { return 7 }
func (f *fakeSession) ServerCapabilities() []string { return nil }
func (f *fakeSession) Host() string                 { return "device" }
func (f *fakeSession) Port() string                 { return "830" }
func (f *fakeSession) User() string                 { return "admin" }
func (f *fakeSession) SSHClient() *ssh.Client       { return nil }

func testSetup() (*Deps, *registry.Entry) {
	sess := &fakeSession{reply: &ncmodel.RPCReply{Ok: true}}
	entry := registry.NewEntry("k", sess, nil, "device", "830", "admin")
	reg := registry.New()
	reg.Insert(entry)
	deps := &Deps{Registry: reg, Exec: rpcexec.New(), Relay: notify.NoopRelay{}}
	return deps, entry
}

func req(doc string) *wire.Request {
	r, err := wire.DecodeRequest(doc)
	if err != nil {
		panic(err)
	}
	return r
}

func TestEditConfigInvalidTarget(t *testing.T) {
	deps, entry := testSetup()
	reply := EditConfig(context.Background(), deps, req(`{"type":5,"session":"k","target":"bogus","config":"<x/>"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
}

func TestEditConfigMissingConfig(t *testing.T) {
	deps, entry := testSetup()
	reply := EditConfig(context.Background(), deps, req(`{"type":5,"session":"k","target":"running"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "Missing config content for edit-config.")
}

func TestEditConfigInvalidTestOption(t *testing.T) {
	deps, entry := testSetup()
	reply := EditConfig(context.Background(), deps, req(`{"type":5,"session":"k","target":"running","config":"<x/>","test-option":"bogus"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
}

func TestEditConfigSuccess(t *testing.T) {
	deps, entry := testSetup()
	reply := EditConfig(context.Background(), deps, req(`{"type":5,"session":"k","target":"running","config":"<x/>"}`), entry)
	assert.Equal(t, wire.ReplyOK, reply.Type)
}

func TestCopyConfigRequiresSourceOrConfig(t *testing.T) {
	deps, entry := testSetup()
	reply := CopyConfig(context.Background(), deps, req(`{"type":6,"session":"k","target":"running"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "Missing source for copy-config.")
}

func TestCopyConfigInvalidSource(t *testing.T) {
	deps, entry := testSetup()
	reply := CopyConfig(context.Background(), deps, req(`{"type":6,"session":"k","target":"running","source":"bogus"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
}

func TestDeleteConfigInvalidTarget(t *testing.T) {
	deps, entry := testSetup()
	reply := DeleteConfig(context.Background(), deps, req(`{"type":7,"session":"k","target":"running"}`), entry)
	assert.Equal(t, wire.ReplyOK, reply.Type)

	reply = DeleteConfig(context.Background(), deps, req(`{"type":7,"session":"k","target":"bogus"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
}

func TestValidateRequiresURLParam(t *testing.T) {
	deps, entry := testSetup()
	reply := Validate(context.Background(), deps, req(`{"type":16,"session":"k","target":"url"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "Missing url for validate.")
}

func TestLockUnlockInvalidTarget(t *testing.T) {
	deps, entry := testSetup()
	reply := Lock(context.Background(), deps, req(`{"type":8,"session":"k"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)

	reply = Unlock(context.Background(), deps, req(`{"type":9,"session":"k","target":"running"}`), entry)
	assert.Equal(t, wire.ReplyOK, reply.Type)
}

func TestKillSessionMissingID(t *testing.T) {
	deps, entry := testSetup()
	reply := KillSession(context.Background(), deps, req(`{"type":10,"session":"k"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "Missing session-id for kill-session.")
}

func TestInfoReturnsCachedSnapshot(t *testing.T) {
	_, entry := testSetup()
	reply := Info(entry)
	assert.Equal(t, wire.ReplyOK, reply.Type)
	assert.Equal(t, uint64(7), reply.SID)
	assert.Equal(t, "device", reply.Host)
}

func TestGenericMissingContent(t *testing.T) {
	deps, entry := testSetup()
	reply := Generic(context.Background(), deps, req(`{"type":12,"session":"k"}`), entry)
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "Missing content for generic RPC.")
}

func TestDispatchUnknownSession(t *testing.T) {
	deps, _ := testSetup()
	reply := Dispatch(context.Background(), deps, req(`{"type":3,"session":"nope"}`))
	assert.Equal(t, wire.ReplyError, reply.Type)
	assert.Contains(t, reply.Errors, "Unknown session to process.")
}

func TestDispatchMissingSession(t *testing.T) {
	deps, _ := testSetup()
	reply := Dispatch(context.Background(), deps, req(`{"type":3}`))
	assert.Equal(t, wire.ReplyError, reply.Type)
	require.Contains(t, reply.Errors, "Missing session specification.")
}
