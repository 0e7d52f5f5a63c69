package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameHeadersRoundTrip(t *testing.T) {
	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetHeaders([]byte("raw header block"))
	h.SetEndStream(true)
	h.SetEndHeaders(true)
	h.SetPriority(5, 200)

	rhead := writeAndRead(t, 1, h)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*Headers)
	assert.Equal(t, []byte("raw header block"), got.Headers())
	assert.True(t, got.EndStream())
	assert.True(t, got.EndHeaders())
	assert.True(t, got.HasPriority())
	assert.EqualValues(t, 5, got.DepStream())
	assert.EqualValues(t, 200, got.Weight())
}

func TestFrameHeadersWithoutPriority(t *testing.T) {
	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetHeaders([]byte("abc"))
	h.SetEndHeaders(true)

	rhead := writeAndRead(t, 1, h)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*Headers)
	assert.False(t, got.HasPriority())
	assert.True(t, got.EndHeaders())
	assert.False(t, got.EndStream())
}

func TestFrameContinuationRoundTrip(t *testing.T) {
	c := AcquireFrame(FrameContinuation).(*Continuation)
	c.AppendHeader([]byte("trailing header fragment"))
	c.SetEndHeaders(true)

	rhead := writeAndRead(t, 1, c)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*Continuation)
	assert.Equal(t, []byte("trailing header fragment"), got.Headers())
	assert.True(t, got.EndHeaders())
}

func TestFramePushPromiseRoundTrip(t *testing.T) {
	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetPromisedStream(4)
	pp.SetHeaders([]byte(":path=/a.js"))
	pp.SetEndHeaders(true)

	rhead := writeAndRead(t, 1, pp)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*PushPromise)
	assert.EqualValues(t, 4, got.PromisedStream())
	assert.Equal(t, []byte(":path=/a.js"), got.Headers())
	assert.True(t, got.EndHeaders())
}

func TestFramePingRoundTrip(t *testing.T) {
	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetData([]byte("12345678"))

	rhead := writeAndRead(t, 0, ping)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*Ping)
	assert.Equal(t, []byte("12345678"), got.Data())
	assert.False(t, got.Ack())
}

func TestFramePingAck(t *testing.T) {
	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetData([]byte("abcdefgh"))
	ping.SetAck(true)

	rhead := writeAndRead(t, 0, ping)
	defer ReleaseFrameHeader(rhead)

	assert.True(t, rhead.Body().(*Ping).Ack())
}

func TestFrameGoAwayRoundTrip(t *testing.T) {
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetLastStream(7)
	ga.SetCode(ProtocolError)
	ga.SetData([]byte("bye"))

	rhead := writeAndRead(t, 0, ga)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*GoAway)
	assert.EqualValues(t, 7, got.LastStream())
	assert.Equal(t, ProtocolError, got.Code())
	assert.Equal(t, []byte("bye"), got.Data())
}

func TestFrameSettingsRoundTrip(t *testing.T) {
	st := AcquireFrame(FrameSettings).(*Settings)
	st.Set(SettingInitialWindowSize, 1<<20)
	st.Set(SettingMaxConcurrentStreams, 50)

	rhead := writeAndRead(t, 0, st)
	defer ReleaseFrameHeader(rhead)

	got := rhead.Body().(*Settings)
	assert.False(t, got.Ack())
	v, ok := got.Get(SettingInitialWindowSize)
	assert.True(t, ok)
	assert.EqualValues(t, 1<<20, v)
	v, ok = got.Get(SettingMaxConcurrentStreams)
	assert.True(t, ok)
	assert.EqualValues(t, 50, v)
}

func TestFrameSettingsAckRoundTrip(t *testing.T) {
	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetAck(true)

	rhead := writeAndRead(t, 0, st)
	defer ReleaseFrameHeader(rhead)

	assert.True(t, rhead.Body().(*Settings).Ack())
}
