// Package ncmodel defines the NETCONF protocol message shapes shared by the
// ncclient transport and the devicesim test double. It mirrors the base
// protocol operations defined by RFC 6241, encoded as XML-tagged Go structs.
package ncmodel

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Request represents the body of a NETCONF RPC request. Concrete request
// types are produced by internal/ncops.
type Request interface{}

// HelloMessage is exchanged by both sides at session setup, advertising
// capabilities and (server to client only) a session id.
type HelloMessage struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// RPCMessage is an <rpc> request envelope.
type RPCMessage struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc"`
	MessageID string   `xml:"message-id,attr"`
	*Union
}

// RPCReply is an <rpc-reply> response envelope.
type RPCReply struct {
	XMLName   xml.Name   `xml:"rpc-reply"`
	Errors    []RPCError `xml:"rpc-error,omitempty"`
	Data      string     `xml:",innerxml"`
	Ok        bool       `xml:",omitempty"`
	MessageID string     `xml:"message-id,attr"`
}

// RPCError is a single <rpc-error> entry.
type RPCError struct {
	Type     string `xml:"error-type"`
	Tag      string `xml:"error-tag"`
	Severity string `xml:"error-severity"`
	Path     string `xml:"error-path"`
	Message  string `xml:"error-message"`
	Info     string `xml:",innerxml"`
}

// Error implements the error interface.
func (re *RPCError) Error() string {
	return fmt.Sprintf("netconf rpc [%s] %q", re.Severity, re.Message)
}

// Notification is a single decoded notification event.
type Notification struct {
	XMLName   xml.Name
	EventTime string
	Event     string `xml:",innerxml"`
}

// NotificationMessage is the wire envelope for a notification.
type NotificationMessage struct {
	XMLName   xml.Name
	EventTime string       `xml:"eventTime"`
	Event     Notification `xml:",any"`
}

// Union lets a request body be supplied either as a pre-built XML string or
// as a struct to be marshalled, without the caller having to care which.
type Union struct {
	ValueStr interface{}
	ValueXML string `xml:",innerxml"`
}

// GetUnion wraps s as a Union, using raw XML passthrough for strings.
func GetUnion(s interface{}) *Union {
	if str, ok := s.(string); ok {
		return &Union{ValueXML: str}
	}
	return &Union{ValueStr: s}
}

// DefaultCapabilities are advertised by the daemon's NETCONF client unless the
// connect request supplies its own list.
var DefaultCapabilities = []string{
	CapBase10,
	CapBase11,
	CapXpath,
}

// Well-known XML names and NETCONF URNs.
var (
	NameHello        = xml.Name{Space: NetconfNS, Local: "hello"}
	NameRPC          = xml.Name{Space: NetconfNS, Local: "rpc"}
	NameRPCReply     = xml.Name{Space: NetconfNS, Local: "rpc-reply"}
	NameNotification = xml.Name{Space: NetconfNotifyNS, Local: "notification"}
)

const (
	NetconfNS       = "urn:ietf:params:xml:ns:netconf:base:1.0"
	NetconfNotifyNS = "urn:ietf:params:xml:ns:netconf:notification:1.0"
	CapBase10       = "urn:ietf:params:netconf:base:1.0"
	CapBase11       = "urn:ietf:params:netconf:base:1.1"
	CapXpath        = "urn:ietf:params:netconf:capability:xpath:1.0"
)

// ReplyKind peeks the root element of a decoded RPCReply's raw body and
// returns its local name ("data", "ok", ...), or "" if the body is empty.
// The abstract NETCONF library of spec.md §6 classifies a reply as
// OK/DATA/ERROR/UNKNOWN before handing it back; this daemon's RPCReply has
// no such tag, so the executor (internal/rpcexec) recovers the same
// distinction by sniffing the reply's own root element instead.
func ReplyKind(r *RPCReply) string {
	if r == nil || strings.TrimSpace(r.Data) == "" {
		return ""
	}
	dec := xml.NewDecoder(strings.NewReader(r.Data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

// PeerSupportsChunkedFraming reports whether caps advertises NETCONF 1.1
// chunked framing support.
func PeerSupportsChunkedFraming(caps []string) bool {
	for _, c := range caps {
		if c == CapBase11 {
			return true
		}
	}
	return false
}
