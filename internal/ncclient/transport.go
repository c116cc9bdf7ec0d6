package ncclient

import (
	"context"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// Transport is a NETCONF-over-SSH byte stream: the "netconf" subsystem
// channel of an SSH session.
type Transport interface {
	io.ReadWriteCloser
}

type sshTransport struct {
	reader      io.Reader
	writeCloser io.WriteCloser
	sshSession  *ssh.Session
	sshClient   *ssh.Client
	trace       *Trace
	target      string
	dialer      Dialer
}

// Dialer abstracts dialing (and closing) the underlying SSH client, so a
// caller can either have this package dial fresh, or hand over an
// already-established *ssh.Client it owns.
type Dialer interface {
	Dial(ctx context.Context) (*ssh.Client, error)
	Close(*ssh.Client) error
}

// NewSSHTransport dials (via dialer) and opens the "netconf" SSH subsystem
// channel against target.
func NewSSHTransport(ctx context.Context, dialer Dialer, target string) (rt Transport, err error) {
	t := &sshTransport{target: target, dialer: dialer, trace: ContextTrace(ctx)}

	t.trace.ConnectStart(target)
	defer func(begin time.Time) {
		t.trace.ConnectDone(target, err, time.Since(begin))
	}(time.Now())

	defer func() {
		if err != nil {
			_ = dialer.Close(t.sshClient)
			if t.sshSession != nil {
				_ = t.sshSession.Close()
			}
		}
	}()

	if t.sshClient, err = dialer.Dial(ctx); err != nil {
		return nil, err
	}
	if t.sshSession, err = t.sshClient.NewSession(); err != nil {
		return nil, err
	}
	if err = t.sshSession.RequestSubsystem("netconf"); err != nil {
		return nil, err
	}
	if t.reader, err = t.sshSession.StdoutPipe(); err != nil {
		return nil, err
	}
	if t.writeCloser, err = t.sshSession.StdinPipe(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *sshTransport) Read(p []byte) (int, error)  { return t.reader.Read(p) }
func (t *sshTransport) Write(p []byte) (int, error) { return t.writeCloser.Write(p) }

// Client exposes the underlying *ssh.Client, so a transient channel (used by
// reload-hello) can be opened on the same SSH transport without redialing.
func (t *sshTransport) Client() *ssh.Client { return t.sshClient }

// Close tears down the stdin pipe, SSH session and SSH client, in that
// order, returning the first error encountered.
func (t *sshTransport) Close() (err error) {
	defer t.trace.ConnectionClosed(t.target, err)

	var writeCloseErr, sessionCloseErr error
	if t.writeCloser != nil {
		writeCloseErr = t.writeCloser.Close()
	}
	if t.sshSession != nil {
		sessionCloseErr = t.sshSession.Close()
	}

	err = t.dialer.Close(t.sshClient)
	if err == nil {
		err = writeCloseErr
	}
	if err == nil {
		err = sessionCloseErr
	}
	return err
}

// RealDialer dials a fresh *ssh.Client using the supplied config.
type RealDialer struct {
	target string
	config *ssh.ClientConfig
}

// NewDialer creates a RealDialer for target using clientConfig.
func NewDialer(target string, clientConfig *ssh.ClientConfig) *RealDialer {
	return &RealDialer{target: target, config: clientConfig}
}

func (rd *RealDialer) Dial(ctx context.Context) (*ssh.Client, error) {
	return ssh.Dial("tcp", rd.target, rd.config)
}

func (rd *RealDialer) Close(cli *ssh.Client) error {
	if cli == nil {
		return nil
	}
	return cli.Close()
}

// channelDialer wraps an already-dialed *ssh.Client (used for reload-hello,
// which runs a transient exchange over the existing transport rather than
// dialing anew); its Close leaves that client open.
type channelDialer struct {
	client *ssh.Client
}

func newChannelDialer(client *ssh.Client) *channelDialer {
	return &channelDialer{client: client}
}

func (cd *channelDialer) Dial(context.Context) (*ssh.Client, error) { return cd.client, nil }
func (cd *channelDialer) Close(*ssh.Client) error                   { return nil }
