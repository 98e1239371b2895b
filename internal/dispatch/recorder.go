package dispatch

import "github.com/danmuck/uartctl/internal/protocol"

// Recorder is an Emitter that collects a Response in memory.
type Recorder struct {
	Response protocol.Response
	// Writes counts Emitter calls; each is one wire write on a real link.
	Writes int
	acked  bool
}

func (r *Recorder) WriteAck(kind protocol.AckKind) error {
	r.Response.Ack = kind
	r.acked = true
	r.Writes++
	return nil
}

func (r *Recorder) WritePayload(p protocol.Payload) error {
	if !r.acked {
		panic("dispatch: payload written before acknowledgement")
	}
	r.Response.Payloads = append(r.Response.Payloads, p)
	r.Writes++
	return nil
}
