package h2

import (
	"sync"
)

// SettingID identifies one entry of a SETTINGS frame's payload.
type SettingID uint8

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
)

const (
	DefaultHeaderTableSize      uint32 = 4096
	DefaultEnablePush           uint32 = 1
	DefaultMaxConcurrentStreams uint32 = 100
	DefaultInitialWindowSize    uint32 = 65535
	DefaultMaxFrameSize         uint32 = 1<<14 - 1

	maxWindowSize = 1<<31 - 1
)

var _ Frame = &Settings{}

// Settings is both the wire SETTINGS frame and the convenient map form used
// by the connection engine to track what each side has advertised.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack    bool
	values map[SettingID]uint32
}

var settingsPool = sync.Pool{
	New: func() interface{} {
		return &Settings{values: make(map[SettingID]uint32, 4)}
	},
}

func AcquireSettings() *Settings {
	st := settingsPool.Get().(*Settings)
	st.Reset()
	return st
}

func ReleaseSettings(st *Settings) {
	settingsPool.Put(st)
}

func (st *Settings) Type() FrameType { return FrameSettings }

func (st *Settings) Reset() {
	st.ack = false
	if st.values == nil {
		st.values = make(map[SettingID]uint32, 4)
		return
	}
	for k := range st.values {
		delete(st.values, k)
	}
}

// DefaultSettings returns a fresh Settings map seeded with this module's
// default values, mirroring original_source/satori/protocol.py seeding its
// live settings map before any handshake rather than hardcoding constants
// at every stream's creation.
func DefaultSettings() *Settings {
	st := &Settings{values: map[SettingID]uint32{
		SettingHeaderTableSize:      DefaultHeaderTableSize,
		SettingEnablePush:           DefaultEnablePush,
		SettingMaxConcurrentStreams: DefaultMaxConcurrentStreams,
		SettingInitialWindowSize:    DefaultInitialWindowSize,
	}}
	return st
}

func (st *Settings) Ack() bool        { return st.ack }
func (st *Settings) SetAck(ack bool)  { st.ack = ack }

func (st *Settings) Get(id SettingID) (uint32, bool) {
	v, ok := st.values[id]
	return v, ok
}

func (st *Settings) Set(id SettingID, value uint32) {
	st.values[id] = value
}

func (st *Settings) HeaderTableSize() uint32 {
	v, _ := st.values[SettingHeaderTableSize]
	return v
}

func (st *Settings) EnablePush() bool {
	v, ok := st.values[SettingEnablePush]
	return !ok || v != 0
}

func (st *Settings) MaxConcurrentStreams() uint32 {
	v, _ := st.values[SettingMaxConcurrentStreams]
	return v
}

func (st *Settings) InitialWindowSize() uint32 {
	v, _ := st.values[SettingInitialWindowSize]
	return v
}

func (st *Settings) CopyTo(dst *Settings) {
	dst.ack = st.ack
	for k := range dst.values {
		delete(dst.values, k)
	}
	for k, v := range st.values {
		dst.values[k] = v
	}
}

func (st *Settings) Deserialize(fr *FrameHeader) error {
	if fr.Stream() != 0 {
		return NewConnectionError(ProtocolError, "SETTINGS frame on non-zero stream")
	}

	if fr.Flags().Has(FlagAck) {
		if len(fr.payload) != 0 {
			return NewConnectionError(FrameSizeError, "SETTINGS ACK must carry no payload")
		}
		st.ack = true
		return nil
	}

	if len(fr.payload)%5 != 0 {
		return NewConnectionError(FrameSizeError, "SETTINGS payload not a multiple of 5 bytes")
	}

	for off := 0; off < len(fr.payload); off += 5 {
		rec := fr.payload[off : off+5]
		id := SettingID(rec[0])
		value := uint32(rec[1])<<24 | uint32(rec[2])<<16 | uint32(rec[3])<<8 | uint32(rec[4])

		switch id {
		case SettingHeaderTableSize, SettingEnablePush, SettingMaxConcurrentStreams, SettingInitialWindowSize:
			st.values[id] = value
		default:
			return NewConnectionError(ProtocolError, "SETTINGS unknown identifier")
		}
	}

	return nil
}

func (st *Settings) Serialize(fr *FrameHeader) {
	if st.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		fr.setPayload(nil)
		return
	}

	payload := make([]byte, 0, 5*len(st.values))
	for _, id := range []SettingID{SettingHeaderTableSize, SettingEnablePush, SettingMaxConcurrentStreams, SettingInitialWindowSize} {
		v, ok := st.values[id]
		if !ok {
			continue
		}
		payload = append(payload, byte(id), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}

	fr.setPayload(payload)
}
