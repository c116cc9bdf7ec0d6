package devicesim

import (
	"time"

	"github.com/netconfd/mod-netconfd/internal/ncmodel"
)

// EchoRequestHandler answers every RPC with a bare <ok/> reply, regardless
// of which operation was requested.
func EchoRequestHandler(op, body string) *ncmodel.RPCReply {
	return &ncmodel.RPCReply{Ok: true}
}

// DataRequestHandler answers every RPC with a <data> reply wrapping the
// given content verbatim, simulating a get/get-config response.
func DataRequestHandler(data string) RequestHandler {
	return func(op, body string) *ncmodel.RPCReply {
		return &ncmodel.RPCReply{Data: "<data>" + data + "</data>"}
	}
}

// ErrorRequestHandler answers every RPC with a single rpc-error carrying
// message, simulating a server-reported failure (spec.md §8 scenario 4).
func ErrorRequestHandler(message string) RequestHandler {
	return func(op, body string) *ncmodel.RPCReply {
		return &ncmodel.RPCReply{
			Errors: []ncmodel.RPCError{{
				Type:     "application",
				Tag:      "operation-failed",
				Severity: "error",
				Message:  message,
			}},
		}
	}
}

// CloseRequestHandler answers every RPC by dropping the channel instead of
// replying, simulating a device that has gone unhealthy mid-call.
func CloseRequestHandler(op, body string) *ncmodel.RPCReply {
	return nil
}

// SlowRequestHandler delays by d before answering with an <ok/> reply,
// simulating a device slow enough to trigger the executor's timeout path.
func SlowRequestHandler(d time.Duration) RequestHandler {
	return func(op, body string) *ncmodel.RPCReply {
		time.Sleep(d)
		return &ncmodel.RPCReply{Ok: true}
	}
}
