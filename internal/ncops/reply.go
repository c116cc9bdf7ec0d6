package ncops

import "encoding/xml"

// innerData unwraps the <rpc-reply> innerxml captured by ncmodel.RPCReply,
// stripping the reply's own wrapping so callers (handlers.Get, .GetSchema)
// can hand the operation's actual result to wire.DataReply without a
// leftover <data> or <rpc-reply> shell around it.
type innerData struct {
	Content string `xml:",innerxml"`
}

// UnwrapData extracts the payload of a <data> or <get-schema> reply body
// produced by Get/GetConfig/GetSchema. It tolerates a reply body that is
// already bare content (no wrapping element) by returning it unchanged if
// unmarshalling fails.
func UnwrapData(raw string) string {
	data := &innerData{}
	if err := xml.Unmarshal([]byte(raw), data); err != nil {
		return raw
	}
	return data.Content
}
