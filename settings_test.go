package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A Settings obtained straight from the frame pool must be immediately
// writable: frame.go's FrameSettings constructor returns a bare
// &Settings{}, and AcquireFrame's Reset() call is the only thing that
// stands between that and a nil-map panic on the first Set/CopyTo.
func TestAcquireFrameSettingsIsImmediatelyWritable(t *testing.T) {
	st := AcquireFrame(FrameSettings).(*Settings)
	defer ReleaseFrame(st)

	assert.NotPanics(t, func() {
		st.Set(SettingInitialWindowSize, 1<<20)
	})

	v, ok := st.Get(SettingInitialWindowSize)
	require.True(t, ok)
	assert.EqualValues(t, 1<<20, v)
}

func TestAcquireFrameSettingsCopyToDoesNotPanic(t *testing.T) {
	src := AcquireFrame(FrameSettings).(*Settings)
	defer ReleaseFrame(src)
	src.Set(SettingMaxConcurrentStreams, 50)

	dst := AcquireFrame(FrameSettings).(*Settings)
	defer ReleaseFrame(dst)

	assert.NotPanics(t, func() {
		src.CopyTo(dst)
	})

	v, ok := dst.Get(SettingMaxConcurrentStreams)
	require.True(t, ok)
	assert.EqualValues(t, 50, v)
}

func TestSettingsResetReusesAllocatedMap(t *testing.T) {
	st := DefaultSettings()
	st.Reset()
	assert.NotPanics(t, func() {
		st.Set(SettingEnablePush, 0)
	})
	v, ok := st.Get(SettingEnablePush)
	require.True(t, ok)
	assert.EqualValues(t, 0, v)
}
