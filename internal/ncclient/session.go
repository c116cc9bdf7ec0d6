package ncclient

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/crypto/ssh"

	"github.com/netconfd/mod-netconfd/internal/ncclient/rfc6242"
	"github.com/netconfd/mod-netconfd/internal/ncmodel"
)

// Session is the abstract NETCONF/SSH library interface this daemon
// consumes (spec.md §6): connect is performed by NewSession; the remaining
// operations below are the ones the RPC executor and connect handler need.
type Session interface {
	// Execute sends req and blocks for the matching rpc-reply. The Trace
	// installed on ctx (see WithTrace) receives ExecuteStart/ExecuteDone
	// and, crucially, ProtocolError for any <rpc-error> the reply carries
	// — this is how a caller gets a call-scoped error sink rather than a
	// session-wide one (§4.2a).
	Execute(ctx context.Context, req ncmodel.Request) (*ncmodel.RPCReply, error)
	// ExecuteAsync submits req, delivering the reply to rchan.
	ExecuteAsync(ctx context.Context, req ncmodel.Request, rchan chan *ncmodel.RPCReply) error
	// Subscribe issues req (expected to be a <create-subscription>) and
	// arranges for subsequent notifications to be delivered to nchan.
	Subscribe(ctx context.Context, req ncmodel.Request, nchan chan *ncmodel.Notification) (*ncmodel.RPCReply, error)
	// Close releases the underlying transport.
	Close()
	// Healthy reports whether the session's incoming-message loop is still
	// running; it goes false once the transport has failed or closed.
	Healthy() bool

	ID() uint64
	ServerCapabilities() []string
	Host() string
	Port() string
	User() string

	// SSHClient returns the underlying *ssh.Client, for callers (reload-hello)
	// that need a transient channel on the same transport. It returns nil if the transport was not SSH-backed.
	SSHClient() *ssh.Client
}

type sesImpl struct {
	cfg   *Config
	t     Transport
	dec   *rfc6242.Decoder
	enc   *rfc6242.Encoder
	trace *Trace

	host, port, user string

	pool []chan *ncmodel.RPCReply

	hellochan chan bool
	responseq []pendingCall
	subchan   chan *ncmodel.Notification

	hello   *ncmodel.HelloMessage
	reqLock sync.Mutex
	pchLock sync.Mutex
	rchLock sync.Mutex

	healthy int32 // guarded by mu; read and written only via Healthy/setUnhealthy
	mu      sync.Mutex
}

// NewSession performs the hello exchange over t and returns a ready Session.
func NewSession(ctx context.Context, t Transport, host, port, user string, cfg *Config) (Session, error) {
	si := &sesImpl{
		cfg:       cfg,
		t:         t,
		host:      host,
		port:      port,
		user:      user,
		dec:       rfc6242.NewDecoder(t),
		enc:       rfc6242.NewEncoder(t),
		trace:     ContextTrace(ctx),
		hellochan: make(chan bool),
		healthy:   1,
	}

	caps := ncmodel.DefaultCapabilities
	if len(cfg.Capabilities) > 0 {
		caps = cfg.Capabilities
	} else if cfg.DisableChunkedCodec {
		caps = []string{ncmodel.CapBase10, ncmodel.CapXpath}
	}

	if err := si.encodeXML(&ncmodel.HelloMessage{Capabilities: caps}); err != nil {
		si.trace.Error("encode hello", hostPort(host, port), err)
		si.Close()
		return nil, err
	}

	go si.handleIncomingMessages()

	if err := si.waitForServerHello(); err != nil {
		si.trace.Error("receive hello", hostPort(host, port), err)
		si.Close()
		return nil, err
	}
	return si, nil
}

func hostPort(host, port string) string { return host + ":" + port }

func (si *sesImpl) Execute(ctx context.Context, req ncmodel.Request) (reply *ncmodel.RPCReply, err error) {
	trace := ContextTrace(ctx)
	trace.ExecuteStart(req, false)
	defer func(begin time.Time) {
		trace.ExecuteDone(req, false, reply, err, time.Since(begin))
	}(time.Now())

	rchan := si.allocChan()
	defer si.relChan(rchan)

	if err = si.execute(trace, req, rchan); err != nil {
		return nil, err
	}

	reply = <-rchan
	return reply, mapError(reply)
}

func (si *sesImpl) ExecuteAsync(ctx context.Context, req ncmodel.Request, rchan chan *ncmodel.RPCReply) error {
	trace := ContextTrace(ctx)
	trace.ExecuteStart(req, true)
	return si.execute(trace, req, rchan)
}

func (si *sesImpl) execute(trace *Trace, req ncmodel.Request, rchan chan *ncmodel.RPCReply) (err error) {
	msg := &ncmodel.RPCMessage{MessageID: uuid.NewV4().String(), Union: ncmodel.GetUnion(req)}

	si.reqLock.Lock()
	defer si.reqLock.Unlock()

	si.pushRespChan(pendingCall{trace: trace, rchan: rchan})
	if err = si.encodeXML(msg); err != nil {
		si.popRespChan()
	}
	return err
}

func (si *sesImpl) Subscribe(ctx context.Context, req ncmodel.Request, nchan chan *ncmodel.Notification) (*ncmodel.RPCReply, error) {
	si.subchan = nchan
	return si.Execute(ctx, req)
}

func (si *sesImpl) Close() {
	si.setUnhealthy()
	if err := si.t.Close(); err != nil {
		si.trace.Error("close session", hostPort(si.host, si.port), err)
	}
}

func (si *sesImpl) ID() uint64                   { return si.hello.SessionID }
func (si *sesImpl) ServerCapabilities() []string { return si.hello.Capabilities }
func (si *sesImpl) Host() string                 { return si.host }
func (si *sesImpl) Port() string                 { return si.port }
func (si *sesImpl) User() string                 { return si.user }

func (si *sesImpl) SSHClient() *ssh.Client {
	if c, ok := si.t.(interface{ Client() *ssh.Client }); ok {
		return c.Client()
	}
	return nil
}

func (si *sesImpl) Healthy() bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.healthy == 1
}

func (si *sesImpl) setUnhealthy() {
	si.mu.Lock()
	si.healthy = 0
	si.mu.Unlock()
}

func (si *sesImpl) waitForServerHello() error {
	select {
	case <-si.hellochan:
		return nil
	case <-time.After(time.Duration(si.cfg.SetupTimeoutSecs) * time.Second):
		return fmt.Errorf("ncclient: failed to get hello from server")
	}
}

func (si *sesImpl) handleIncomingMessages() {
	defer si.closeChannels()
	defer si.setUnhealthy()

	for {
		msg, err := si.dec.ReadMessage()
		if err != nil {
			return
		}
		if err := si.handleMessage(msg); err != nil {
			return
		}
	}
}

func (si *sesImpl) handleMessage(msg string) error {
	name, err := peekRootElement(msg)
	if err != nil {
		return err
	}

	switch name.Local {
	case "hello":
		return si.handleHello(msg)
	case "rpc-reply":
		return si.handleRPCReply(msg)
	case "notification":
		return si.handleNotification(msg)
	default:
		return nil
	}
}

// peekRootElement inspects the root element of an XML document without
// fully decoding it, so the session can route a message to the right
// handler before committing to a concrete struct type.
func peekRootElement(msg string) (xml.Name, error) {
	dec := xml.NewDecoder(strings.NewReader(msg))
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.Name{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name, nil
		}
	}
}

func (si *sesImpl) handleHello(msg string) error {
	hello := &ncmodel.HelloMessage{}
	if err := xml.Unmarshal([]byte(msg), hello); err != nil {
		si.hellochan <- false
		return err
	}
	si.hello = hello

	if ncmodel.PeerSupportsChunkedFraming(hello.Capabilities) && !si.cfg.DisableChunkedCodec {
		si.dec.EnableChunkedFraming()
		si.enc.EnableChunkedFraming()
	}

	si.hellochan <- true
	si.trace.HelloDone(hello)
	return nil
}

func (si *sesImpl) handleRPCReply(msg string) error {
	reply := &ncmodel.RPCReply{}
	if err := xml.Unmarshal([]byte(msg), reply); err != nil {
		return err
	}

	call := si.popRespChan()
	trace := si.trace
	if call.trace != nil {
		trace = call.trace
	}

	for _, e := range reply.Errors {
		if e.Severity == "error" {
			trace.ProtocolError(si.safeID(), e.Message)
		}
	}

	if call.rchan == nil {
		return nil
	}
	go func(ch chan *ncmodel.RPCReply, r *ncmodel.RPCReply) { ch <- r }(call.rchan, reply)
	return nil
}

// pendingCall pairs a response channel awaiting a reply with the Trace the
// caller supplied for that call, so handleRPCReply can report a
// server-side <rpc-error> through the right call's hook rather than the
// session-wide default.
type pendingCall struct {
	trace *Trace
	rchan chan *ncmodel.RPCReply
}

func (si *sesImpl) safeID() uint64 {
	if si.hello == nil {
		return 0
	}
	return si.hello.SessionID
}

func (si *sesImpl) handleNotification(msg string) error {
	nmsg := &ncmodel.NotificationMessage{}
	if err := xml.Unmarshal([]byte(msg), nmsg); err != nil {
		return err
	}

	if si.subchan == nil {
		return nil
	}

	n := &ncmodel.Notification{XMLName: nmsg.XMLName, EventTime: nmsg.EventTime, Event: nmsg.Event.Event}
	si.trace.NotificationRecv(n)

	select {
	case si.subchan <- n:
	default:
		si.trace.NotificationDrop(n)
	}
	return nil
}

func (si *sesImpl) closeChannels() {
	close(si.hellochan)
	if si.subchan != nil {
		close(si.subchan)
	}
	for {
		call := si.popRespChan()
		if call.rchan == nil {
			return
		}
		close(call.rchan)
	}
}

func (si *sesImpl) allocChan() chan *ncmodel.RPCReply {
	si.pchLock.Lock()
	defer si.pchLock.Unlock()

	l := len(si.pool)
	if l == 0 {
		return make(chan *ncmodel.RPCReply)
	}
	var ch chan *ncmodel.RPCReply
	si.pool, ch = si.pool[:l-1], si.pool[l-1]
	return ch
}

func (si *sesImpl) relChan(ch chan *ncmodel.RPCReply) {
	si.pchLock.Lock()
	defer si.pchLock.Unlock()
	si.pool = append(si.pool, ch)
}

func (si *sesImpl) pushRespChan(call pendingCall) {
	si.rchLock.Lock()
	defer si.rchLock.Unlock()
	si.responseq = append(si.responseq, call)
}

func (si *sesImpl) popRespChan() pendingCall {
	si.rchLock.Lock()
	defer si.rchLock.Unlock()
	if len(si.responseq) == 0 {
		return pendingCall{}
	}
	var call pendingCall
	si.responseq, call = si.responseq[1:], si.responseq[0]
	return call
}

func (si *sesImpl) encodeXML(v interface{}) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return err
	}
	return si.enc.WriteMessage(xml.Header + string(b))
}

// mapError maps a reply to an error if it is nil (the session closed before
// delivering it) or carries a severity="error" rpc-error.
func mapError(r *ncmodel.RPCReply) error {
	if r == nil {
		return io.ErrUnexpectedEOF
	}
	for i := range r.Errors {
		if r.Errors[i].Severity == "error" {
			return &r.Errors[i]
		}
	}
	return nil
}
