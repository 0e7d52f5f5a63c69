package h2

var _ Frame = &Ping{}

// Ping measures round-trip time and verifies the connection is live.
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

func (ping *Ping) Type() FrameType { return FramePing }

func (ping *Ping) Reset() {
	ping.ack = false
	ping.data = [8]byte{}
}

func (ping *Ping) CopyTo(p *Ping) {
	p.ack = ping.ack
	p.data = ping.data
}

func (ping *Ping) Ack() bool         { return ping.ack }
func (ping *Ping) SetAck(ack bool)   { ping.ack = ack }

func (ping *Ping) Data() []byte { return ping.data[:] }

func (ping *Ping) SetData(b []byte) { copy(ping.data[:], b) }

func (ping *Ping) Deserialize(fr *FrameHeader) error {
	if fr.Stream() != 0 {
		return NewConnectionError(ProtocolError, "PING frame on non-zero stream")
	}
	if len(fr.payload) != 8 {
		return NewConnectionError(FrameSizeError, "PING frame must be exactly 8 bytes")
	}

	ping.ack = fr.Flags().Has(FlagAck)
	copy(ping.data[:], fr.payload)

	return nil
}

func (ping *Ping) Serialize(fr *FrameHeader) {
	if ping.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
	}
	fr.setPayload(ping.data[:])
}
