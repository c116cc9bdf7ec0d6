package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/ncmodel"
)

type fakeSession struct {
	id     uint64
	caps   []string
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
func (f *fakeSession) Close()                      { f.closed = true }
func (f *fakeSession) Healthy() bool                { return !f.closed }
func (f *fakeSession) ID() uint64                   { return f.id }
func (f *fakeSession) ServerCapabilities() []string { return f.caps }
func (f *fakeSession) Host() string                 { return "device" }
func (f *fakeSession) Port() string                 { return "830" }
func (f *fakeSession) User() string                 { return "admin" }
func (f *fakeSession) SSHClient() *ssh.Client       { return nil }

func TestRegistryInsertGetRemove(t *testing.T) {
	r := New()
	e := NewEntry("k1", &fakeSession{id: 1}, nil, "h", "830", "u")
	r.Insert(e)

	assert.Equal(t, e, r.Get("k1"))
	assert.Equal(t, 1, r.Len())

	removed := r.Remove("k1")
	assert.Equal(t, e, removed)
	assert.Nil(t, r.Get("k1"))
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Remove("k1"))
}

func TestRegistryKeys(t *testing.T) {
	r := New()
	r.Insert(NewEntry("a", &fakeSession{id: 1}, nil, "h", "830", "u"))
	r.Insert(NewEntry("b", &fakeSession{id: 2}, nil, "h", "830", "u"))

	keys := r.Keys()
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestEntrySnapshotVersionFromCapabilities(t *testing.T) {
	legacy := NewEntry("k", &fakeSession{id: 1, caps: []string{ncmodel.CapBase10}}, nil, "h", "830", "u")
	assert.Equal(t, "1.0", legacy.Snapshot().Version)

	chunked := NewEntry("k", &fakeSession{id: 2, caps: []string{ncmodel.CapBase10, ncmodel.CapBase11}}, nil, "h", "830", "u")
	assert.Equal(t, "1.1", chunked.Snapshot().Version)
}

func TestEntrySetCapabilitiesRefreshesSnapshot(t *testing.T) {
	e := NewEntry("k", &fakeSession{id: 1, caps: []string{ncmodel.CapBase10}}, nil, "h", "830", "u")
	require.Equal(t, "1.0", e.Snapshot().Version)

	e.SetCapabilities([]string{ncmodel.CapBase10, ncmodel.CapBase11})
	assert.Equal(t, "1.1", e.Snapshot().Version)
}

func TestEntryTouchAndIdleSince(t *testing.T) {
	e := NewEntry("k", &fakeSession{id: 1}, nil, "h", "830", "u")

	future := time.Now().Add(time.Hour)
	assert.True(t, e.IdleSince(future))

	e.Touch()
	assert.False(t, e.IdleSince(time.Now().Add(-time.Hour)))
}

func TestRegistrySweep(t *testing.T) {
	r := New()
	stale := &fakeSession{id: 1}
	fresh := &fakeSession{id: 2}

	r.Insert(NewEntry("stale", stale, nil, "h", "830", "u"))
	freshEntry := NewEntry("fresh", fresh, nil, "h", "830", "u")
	r.Insert(freshEntry)

	time.Sleep(10 * time.Millisecond)
	freshEntry.Touch()

	evicted := r.Sweep(time.Now().Add(-5*time.Millisecond), func(e *Entry) {
		e.Session.Close()
	})

	assert.Equal(t, 1, evicted)
	assert.Nil(t, r.Get("stale"))
	assert.NotNil(t, r.Get("fresh"))
	assert.True(t, stale.closed)
	assert.False(t, fresh.closed)
}
