package devicesim

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netconfd/mod-netconfd/internal/ncclient"
)

func dial(t *testing.T, sim *Server) ncclient.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	creds := ncclient.Credentials{Host: "127.0.0.1", Port: strconv.Itoa(sim.Port()), User: "admin", Password: "secret"}
	sess, err := ncclient.NewRPCSession(ctx, creds, nil)
	require.NoError(t, err)
	return sess
}

func TestEchoHandlerRoundTrip(t *testing.T) {
	sim, err := NewServer("admin", "secret", EchoRequestHandler)
	require.NoError(t, err)
	defer sim.Close()

	sess := dial(t, sim)
	defer sess.Close()

	reply, err := sess.Execute(context.Background(), "<get/>")
	require.NoError(t, err)
	assert.True(t, reply.Ok)
	assert.Empty(t, reply.Errors)
}

func TestDataHandlerRoundTrip(t *testing.T) {
	sim, err := NewServer("admin", "secret", DataRequestHandler("<interfaces/>"))
	require.NoError(t, err)
	defer sim.Close()

	sess := dial(t, sim)
	defer sess.Close()

	reply, err := sess.Execute(context.Background(), "<get-config/>")
	require.NoError(t, err)
	assert.Contains(t, reply.Data, "<interfaces/>")
}

func TestErrorHandlerRoundTrip(t *testing.T) {
	sim, err := NewServer("admin", "secret", ErrorRequestHandler("malformed XML body"))
	require.NoError(t, err)
	defer sim.Close()

	sess := dial(t, sim)
	defer sess.Close()

	reply, err := sess.Execute(context.Background(), "<edit-config/>")
	require.Error(t, err)
	require.Len(t, reply.Errors, 1)
	assert.Equal(t, "malformed XML body", reply.Errors[0].Message)
}

func TestCloseHandlerBreaksSession(t *testing.T) {
	sim, err := NewServer("admin", "secret", CloseRequestHandler)
	require.NoError(t, err)
	defer sim.Close()

	sess := dial(t, sim)
	defer sess.Close()

	_, err = sess.Execute(context.Background(), "<get/>")
	assert.Error(t, err)
}
