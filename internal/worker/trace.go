package worker

import (
	"log"

	"github.com/netconfd/mod-netconfd/internal/wire"
)

// Trace defines the hooks the worker loop reports through, matching the
// function-valued-struct idiom used throughout this module's NETCONF layer
// (internal/ncclient.Trace). reqID is a correlation id generated fresh per
// request (google/uuid), letting RequestStart/RequestDone for the same
// request be joined in an external log even though wire.Request carries no
// id of its own.
type Trace struct {
	RequestStart func(reqID string, req *wire.Request)
	RequestDone  func(reqID string, reply *wire.Reply)
	ClientClosed func(err error)
}

// NoOpTrace does nothing for every hook.
var NoOpTrace = &Trace{
	RequestStart: func(string, *wire.Request) {},
	RequestDone:  func(string, *wire.Reply) {},
	ClientClosed: func(error) {},
}

// DefaultTrace logs client disconnects via the standard library logger.
var DefaultTrace = &Trace{
	RequestStart: func(string, *wire.Request) {},
	RequestDone:  func(string, *wire.Reply) {},
	ClientClosed: func(err error) {
		log.Printf("worker: client closed: %v", err)
	},
}
