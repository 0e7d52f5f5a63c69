package h2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamStartsIdle(t *testing.T) {
	st := NewStream(1, 65535)
	assert.Equal(t, StreamStateIdle, st.State())
	assert.EqualValues(t, 65535, st.OutboundWindow())
}

func TestTransitionSendHeadersWithoutEndStreamOpens(t *testing.T) {
	st := NewStream(1, 65535)
	require.NoError(t, st.TransitionSendHeaders(false))
	assert.Equal(t, StreamStateOpen, st.State())
}

func TestTransitionSendHeadersWithEndStreamHalfClosesLocal(t *testing.T) {
	st := NewStream(1, 65535)
	require.NoError(t, st.TransitionSendHeaders(true))
	assert.Equal(t, StreamStateHalfClosedLocal, st.State())
}

func TestTransitionRecvHeadersWithEndStreamHalfClosesRemote(t *testing.T) {
	st := NewStream(2, 65535)
	require.NoError(t, st.TransitionRecvHeaders(true))
	assert.Equal(t, StreamStateHalfClosedRemote, st.State())
}

func TestReservedLocalToHalfClosedRemoteOnSendHeaders(t *testing.T) {
	st := NewStream(2, 65535)
	st.ReserveLocal()
	require.NoError(t, st.TransitionSendHeaders(false))
	assert.Equal(t, StreamStateHalfClosedRemote, st.State())
}

func TestReservedRemoteToHalfClosedLocalOnRecvHeaders(t *testing.T) {
	st := NewStream(2, 65535)
	st.ReserveRemote()
	require.NoError(t, st.TransitionRecvHeaders(false))
	assert.Equal(t, StreamStateHalfClosedLocal, st.State())
}

func TestDataInIdleIsProtocolError(t *testing.T) {
	st := NewStream(1, 65535)
	err := st.TransitionSendData(false)
	require.Error(t, err)

	var serr *StreamError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, ProtocolError, serr.Code)
}

func TestBothSidesEndStreamClosesStream(t *testing.T) {
	st := NewStream(1, 65535)
	require.NoError(t, st.TransitionSendHeaders(false))
	require.NoError(t, st.TransitionRecvHeaders(false))
	require.NoError(t, st.TransitionSendData(true))
	assert.Equal(t, StreamStateHalfClosedLocal, st.State())
	require.NoError(t, st.TransitionRecvData(true))
	assert.Equal(t, StreamStateClosed, st.State())
}

func TestResetWakesDequeue(t *testing.T) {
	st := NewStream(1, 65535)

	done := make(chan error, 1)
	go func() {
		_, err := st.Dequeue()
		done <- err
	}()

	serr := NewStreamError(1, CancelError, "peer cancelled")
	st.Reset(serr)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, serr)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake up after Reset")
	}
	assert.Equal(t, StreamStateClosed, st.State())
}

func TestGrowOutboundWindowWakesWaiter(t *testing.T) {
	st := NewStream(1, 10)
	assert.False(t, st.TakeOutboundWindow(20))

	st.GrowOutboundWindow(20)
	select {
	case <-st.windowSignal:
	default:
		t.Fatal("GrowOutboundWindow did not signal the window channel")
	}
	assert.True(t, st.TakeOutboundWindow(20))
}

func TestHeaderBlockAccumulatesAcrossFragments(t *testing.T) {
	st := NewStream(1, 65535)
	st.AppendRequestHeaderFragment([]byte("frag1"), false)
	block, done := st.RequestHeaderBlock()
	assert.False(t, done)
	assert.Equal(t, []byte("frag1"), block)

	st.AppendRequestHeaderFragment([]byte("frag2"), true)
	block, done = st.RequestHeaderBlock()
	assert.True(t, done)
	assert.Equal(t, []byte("frag1frag2"), block)
}

func TestPromiseFutureResolves(t *testing.T) {
	st := NewStream(2, 65535)
	future := st.NewPromiseFuture()

	promised := NewStream(4, 65535)
	future <- promised

	got, err := st.AwaitPromise()
	require.NoError(t, err)
	assert.Same(t, promised, got)
}
