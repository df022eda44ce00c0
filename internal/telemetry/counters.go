package telemetry

import (
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Counters tracks datagram traffic for one socket.
type Counters struct {
	packetsIn      atomic.Uint64
	packetsOut     atomic.Uint64
	bytesIn        atomic.Uint64
	bytesOut       atomic.Uint64
	decodeFailures atomic.Uint64
	sendFailures   atomic.Uint64
	rejected       atomic.Uint64
}

// CountersSnapshot is a point-in-time copy of Counters.
type CountersSnapshot struct {
	PacketsIn      uint64 `json:"packetsIn"`
	PacketsOut     uint64 `json:"packetsOut"`
	BytesIn        uint64 `json:"bytesIn"`
	BytesOut       uint64 `json:"bytesOut"`
	BytesInHuman   string `json:"bytesInHuman"`
	BytesOutHuman  string `json:"bytesOutHuman"`
	DecodeFailures uint64 `json:"decodeFailures"`
	SendFailures   uint64 `json:"sendFailures"`
	Rejected       uint64 `json:"rejected"`
}

func (c *Counters) RecordIn(bytes int) {
	c.packetsIn.Add(1)
	if bytes > 0 {
		c.bytesIn.Add(uint64(bytes))
	}
}

func (c *Counters) RecordOut(bytes int) {
	c.packetsOut.Add(1)
	if bytes > 0 {
		c.bytesOut.Add(uint64(bytes))
	}
}

func (c *Counters) RecordDecodeFailure() {
	c.decodeFailures.Add(1)
}

func (c *Counters) RecordSendFailure() {
	c.sendFailures.Add(1)
}

func (c *Counters) RecordRejected() {
	c.rejected.Add(1)
}

func (c *Counters) Snapshot() CountersSnapshot {
	if c == nil {
		return CountersSnapshot{}
	}
	in := c.bytesIn.Load()
	out := c.bytesOut.Load()
	return CountersSnapshot{
		PacketsIn:      c.packetsIn.Load(),
		PacketsOut:     c.packetsOut.Load(),
		BytesIn:        in,
		BytesOut:       out,
		BytesInHuman:   humanize.Bytes(in),
		BytesOutHuman:  humanize.Bytes(out),
		DecodeFailures: c.decodeFailures.Load(),
		SendFailures:   c.sendFailures.Load(),
		Rejected:       c.rejected.Load(),
	}
}
