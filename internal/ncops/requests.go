// Package ncops builds the NETCONF RPC request bodies the daemon's opcode
// handlers send over an ncclient.Session, adapted from the teacher's request
// builders: the same struct shapes, the same xml tags, and the same use of
// ncmodel.Union to let a caller supply either a pre-rendered XML fragment or
// a struct to be marshalled as the operation's child content.
package ncops

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/netconfd/mod-netconfd/internal/ncmodel"
)

// Namespace is an XML namespace prefix binding used by xpath filters.
type Namespace struct {
	ID   string
	Path string
}

// Filter is the <filter> element of a get or get-config request.
type Filter struct {
	XMLName xml.Name `xml:"filter"`
	Type    string   `xml:"type,attr"`
	Select  string   `xml:"select,attr,omitempty"`
	*ncmodel.Union
}

// Config is the <config> element of an edit-config request.
type Config struct {
	XMLName xml.Name `xml:"config"`
	*ncmodel.Union
}

// Datastore identifies a configuration datastore, either by name
// (<running/>, <candidate/>) or by <url>.
type Datastore struct {
	Type string `xml:",innerxml"`
	URL  string `xml:"url,omitempty"`
}

// ByName builds a Datastore referring to a named datastore.
func ByName(name string) *Datastore {
	return &Datastore{Type: "<" + name + "/>"}
}

// ByURL builds a Datastore referring to a URL-addressed datastore.
func ByURL(url string) *Datastore {
	return &Datastore{URL: url}
}

// ByConfig builds a Datastore carrying an inline <config> body, used by
// copy-config when its source is supplied directly rather than naming a
// datastore (§4.6: "source defaults to inline config").
func ByConfig(xmlBody string) *Datastore {
	return &Datastore{Type: "<config>" + xmlBody + "</config>"}
}

type getReq struct {
	XMLName xml.Name `xml:"get"`
	Filter  *Filter
}

// Get builds a <get> request with an optional subtree filter.
func Get(filter interface{}) ncmodel.Request {
	req := &getReq{}
	if filter != nil {
		req.Filter = &Filter{Type: "subtree", Union: ncmodel.GetUnion(filter)}
	}
	return req
}

// GetXpath builds a <get> request with an xpath filter.
func GetXpath(xpath string, nslist []Namespace) ncmodel.Request {
	return fmt.Sprintf(`<get><filter %s type="xpath" select=%q/></get>`, namespaceAttrs(nslist), xpath)
}

func namespaceAttrs(nslist []Namespace) string {
	var b strings.Builder
	for _, ns := range nslist {
		fmt.Fprintf(&b, ` xmlns:%s=%q`, ns.ID, ns.Path)
	}
	return strings.TrimSpace(b.String())
}

type getConfigReq struct {
	XMLName    xml.Name   `xml:"get-config"`
	Source     *Datastore `xml:"source"`
	Filter     *Filter
	FilterBody string `xml:",innerxml"`
}

// GetConfig builds a <get-config> request against source, with an optional
// subtree filter.
func GetConfig(source string, filter interface{}) ncmodel.Request {
	req := &getConfigReq{Source: ByName(source)}
	if filter != nil {
		req.Filter = &Filter{Type: "subtree", Union: ncmodel.GetUnion(filter)}
	}
	return req
}

// GetConfigXpath builds a <get-config> request against source, with an
// xpath filter.
func GetConfigXpath(source, xpath string, nslist []Namespace) ncmodel.Request {
	req := &getConfigReq{Source: ByName(source)}
	if xpath != "" {
		req.FilterBody = fmt.Sprintf(`<filter %s type="xpath" select=%q/>`, namespaceAttrs(nslist), xpath)
	}
	return req
}

type editConfigReq struct {
	XMLName          xml.Name   `xml:"edit-config"`
	Target           *Datastore `xml:"target"`
	ErrorOption      string     `xml:"error-option,omitempty"`
	TestOption       string     `xml:"test-option,omitempty"`
	DefaultOperation string     `xml:"default-operation,omitempty"`
	Config           *Config
	ConfigURL        string `xml:"url,omitempty"`
}

// EditOption configures an EditConfig request beyond its target and body.
type EditOption func(*editConfigReq)

// DefaultOperation sets the edit-config default-operation.
func DefaultOperation(oper string) EditOption {
	return func(r *editConfigReq) { r.DefaultOperation = oper }
}

// TestOption sets the edit-config test-option.
func TestOption(opt string) EditOption {
	return func(r *editConfigReq) { r.TestOption = opt }
}

// ErrorOption sets the edit-config error-option.
func ErrorOption(opt string) EditOption {
	return func(r *editConfigReq) { r.ErrorOption = opt }
}

// EditConfig builds an <edit-config> request applying config to target.
// config is either an XML string used verbatim, or a struct to be
// marshalled as the content of <config>.
func EditConfig(target string, config interface{}, opts ...EditOption) ncmodel.Request {
	req := &editConfigReq{Target: ByName(target), Config: &Config{Union: ncmodel.GetUnion(config)}}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// EditConfigURL builds an <edit-config> request sourcing its content from a
// <url> element instead of an inline <config>.
func EditConfigURL(target, url string, opts ...EditOption) ncmodel.Request {
	req := &editConfigReq{Target: ByName(target), ConfigURL: url}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

type copyConfigReq struct {
	XMLName xml.Name   `xml:"copy-config"`
	Target  *Datastore `xml:"target"`
	Source  *Datastore `xml:"source"`
}

// CopyConfig builds a <copy-config> request.
func CopyConfig(source, target *Datastore) ncmodel.Request {
	return &copyConfigReq{Source: source, Target: target}
}

type deleteConfigReq struct {
	XMLName xml.Name   `xml:"delete-config"`
	Target  *Datastore `xml:"target"`
}

// DeleteConfig builds a <delete-config> request.
func DeleteConfig(target *Datastore) ncmodel.Request {
	return &deleteConfigReq{Target: target}
}

type lockReq struct {
	XMLName xml.Name   `xml:"lock"`
	Target  *Datastore `xml:"target"`
}

// Lock builds a <lock> request.
func Lock(target string) ncmodel.Request {
	return &lockReq{Target: ByName(target)}
}

type unlockReq struct {
	XMLName xml.Name   `xml:"unlock"`
	Target  *Datastore `xml:"target"`
}

// Unlock builds an <unlock> request.
func Unlock(target string) ncmodel.Request {
	return &unlockReq{Target: ByName(target)}
}

type discardReq struct {
	XMLName xml.Name `xml:"discard-changes"`
}

// Discard builds a <discard-changes> request.
func Discard() ncmodel.Request { return &discardReq{} }

type validateReq struct {
	XMLName xml.Name   `xml:"validate"`
	Source  *Datastore `xml:"source"`
}

// Validate builds a <validate> request against source.
func Validate(source string) ncmodel.Request {
	return &validateReq{Source: ByName(source)}
}

type closeSessionReq struct {
	XMLName xml.Name `xml:"close-session"`
}

// CloseSession builds a <close-session> request.
func CloseSession() ncmodel.Request { return &closeSessionReq{} }

type killSessionReq struct {
	XMLName xml.Name `xml:"kill-session"`
	ID      uint64   `xml:"session-id"`
}

// KillSession builds a <kill-session> request targeting id.
func KillSession(id uint64) ncmodel.Request {
	return &killSessionReq{ID: id}
}

type getSchemaReq struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:yang:ietf-netconf-monitoring get-schema"`
	ID      string   `xml:"identifier"`
	Version string   `xml:"version,omitempty"`
	Format  string   `xml:"format,omitempty"`
}

// GetSchema builds a get-schema request for the named YANG module.
func GetSchema(id, version, format string) ncmodel.Request {
	return &getSchemaReq{ID: id, Version: version, Format: format}
}

type createSubscriptionReq struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:netconf:notification:1.0 create-subscription"`
	Stream  string   `xml:"stream,omitempty"`
}

// CreateSubscription builds a <create-subscription> request on stream (or
// the default stream, if empty).
func CreateSubscription(stream string) ncmodel.Request {
	return &createSubscriptionReq{Stream: stream}
}
