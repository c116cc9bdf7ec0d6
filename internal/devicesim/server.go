// Package devicesim is a simulated NETCONF-over-SSH device: enough of an
// SSH server plus the "netconf" subsystem handshake to drive
// internal/ncclient and internal/rpcexec end-to-end in tests, adapted from
// the teacher's netconf/server/ssh and netconf/server/netconf test servers
// (golang.org/x/crypto/ssh accept loop, hello/rpc dispatch over the same
// framing internal/ncclient/rfc6242 implements).
package devicesim

import (
	"encoding/xml"
	"net"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/ncclient/rfc6242"
	"github.com/netconfd/mod-netconfd/internal/ncmodel"
)

// Server is a simulated device listening for SSH connections on an
// ephemeral loopback port.
type Server struct {
	listener net.Listener
	sshcfg   *ssh.ServerConfig
	handler  RequestHandler
	caps     []string
	nextSID  uint64
}

// RequestHandler decides how the simulated device answers a single RPC, by
// the RPC body's root element name (e.g. "get-config") and its raw inner
// XML. A nil return value tells the session handler to close the channel
// without replying, simulating a broken transport.
type RequestHandler func(op, body string) *ncmodel.RPCReply

// NewServer starts a simulated device on an ephemeral loopback port,
// authenticating uname/password and answering every RPC through handler.
func NewServer(uname, password string, handler RequestHandler) (*Server, error) {
	sshcfg, err := PasswordConfig(uname, password)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{listener: ln, sshcfg: sshcfg, handler: handler, caps: ncmodel.DefaultCapabilities}
	go s.acceptConnections()
	return s, nil
}

// WithCapabilities overrides the capability set the simulated device
// advertises in its hello (for negotiating legacy vs chunked framing in
// tests).
func (s *Server) WithCapabilities(caps []string) *Server {
	s.caps = caps
	return s
}

// Addr returns "host:port" for dialing this simulated device.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Port returns the TCP port this simulated device is listening on.
func (s *Server) Port() int { return s.listener.Addr().(*net.TCPAddr).Port }

// Close stops accepting new connections.
func (s *Server) Close() { _ = s.listener.Close() }

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		sconn, chans, reqs, err := ssh.NewServerConn(conn, s.sshcfg)
		if err != nil {
			conn.Close()
			continue
		}
		go ssh.DiscardRequests(reqs)
		go s.serveChannels(sconn, chans)
	}
}

func (s *Server) serveChannels(sconn *ssh.ServerConn, chans <-chan ssh.NewChannel) {
	defer sconn.Close()
	for newCh := range chans {
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}

		go func(in <-chan *ssh.Request) {
			for req := range in {
				_ = req.Reply(req.Type == "subsystem", nil)
			}
		}(requests)

		sid := atomic.AddUint64(&s.nextSID, 1)
		go func() {
			defer ch.Close()
			newSessionHandler(sid, s.caps, s.handler).serve(ch)
		}()
	}
}

// sessionHandler drives one simulated NETCONF session: send hello, wait for
// the client's hello, then decode and answer RPCs until the channel
// closes.
type sessionHandler struct {
	sid     uint64
	caps    []string
	handler RequestHandler
}

func newSessionHandler(sid uint64, caps []string, handler RequestHandler) *sessionHandler {
	return &sessionHandler{sid: sid, caps: caps, handler: handler}
}

func (h *sessionHandler) serve(ch ssh.Channel) {
	dec := rfc6242.NewDecoder(ch)
	enc := rfc6242.NewEncoder(ch)

	hello := &ncmodel.HelloMessage{Capabilities: h.caps, SessionID: h.sid}
	if err := h.writeMessage(enc, hello); err != nil {
		return
	}

	clientChunked := false
	for {
		doc, err := dec.ReadMessage()
		if err != nil {
			return
		}

		op, ok := peekRoot(doc)
		if !ok {
			continue
		}

		switch op {
		case "hello":
			var clientHello ncmodel.HelloMessage
			if xml.Unmarshal([]byte(doc), &clientHello) == nil {
				clientChunked = ncmodel.PeerSupportsChunkedFraming(clientHello.Capabilities) &&
					ncmodel.PeerSupportsChunkedFraming(h.caps)
			}
			if clientChunked {
				dec.EnableChunkedFraming()
				enc.EnableChunkedFraming()
			}
		case "rpc":
			msgID, rpcOp, rpcBody := peekRPC(doc)
			reply := h.handler(rpcOp, rpcBody)
			if reply == nil {
				return
			}
			reply.MessageID = msgID
			if err := h.writeMessage(enc, reply); err != nil {
				return
			}
		}
	}
}

func (h *sessionHandler) writeMessage(enc *rfc6242.Encoder, v interface{}) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return err
	}
	return enc.WriteMessage(string(b))
}

// peekRoot returns the local name of doc's root element, or ok=false if it
// cannot be parsed.
func peekRoot(doc string) (op string, ok bool) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		if se, isStart := tok.(xml.StartElement); isStart {
			return se.Name.Local, true
		}
	}
}

// peekRPC extracts the <rpc> envelope's message-id and its single child
// element's name and inner XML.
func peekRPC(doc string) (msgID, op, body string) {
	var msg ncmodel.RPCMessage
	if err := xml.Unmarshal([]byte(doc), &msg); err != nil {
		return "", "", ""
	}
	msgID = msg.MessageID

	dec := xml.NewDecoder(strings.NewReader(doc))
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return msgID, "", ""
		}
		if se, isStart := tok.(xml.StartElement); isStart {
			depth++
			if depth == 2 {
				op = se.Name.Local
				var inner struct {
					Body string `xml:",innerxml"`
				}
				_ = dec.DecodeElement(&inner, &se)
				return msgID, op, inner.Body
			}
		}
	}
}
