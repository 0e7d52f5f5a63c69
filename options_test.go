package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsMatchProtocolDefaults(t *testing.T) {
	opts := DefaultOptions()
	assert.EqualValues(t, DefaultHeaderTableSize, opts.HeaderTableSize)
	assert.EqualValues(t, DefaultMaxConcurrentStreams, opts.MaxConcurrentStreams)
	assert.EqualValues(t, DefaultInitialWindowSize, opts.InitialWindowSize)
	assert.Equal(t, DefaultPingInterval, opts.PingInterval)
	assert.Equal(t, DefaultSettingsTimeout, opts.SettingsTimeout)
}

func TestNewOptionsFromMapOverridesDefaults(t *testing.T) {
	opts, err := NewOptionsFromMap(map[string]interface{}{
		"max_concurrent_streams": 42,
		"enable_push":            true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 42, opts.MaxConcurrentStreams)
	assert.True(t, opts.EnablePush)
	// Unset fields keep the module defaults.
	assert.EqualValues(t, DefaultHeaderTableSize, opts.HeaderTableSize)
}

func TestNewOptionsFromMapRejectsWrongType(t *testing.T) {
	_, err := NewOptionsFromMap(map[string]interface{}{
		"max_concurrent_streams": "not-a-number",
	})
	require.Error(t, err)
}

func TestOptionsSettingsReflectsOverrides(t *testing.T) {
	opts := DefaultOptions()
	opts.InitialWindowSize = 1000
	opts.EnablePush = false

	st := opts.settings()
	assert.EqualValues(t, 1000, st.InitialWindowSize())
	assert.False(t, st.EnablePush())
}

func TestLoggerFallsBackToNop(t *testing.T) {
	var opts *Options
	assert.NotNil(t, opts.logger())

	opts = &Options{}
	assert.NotNil(t, opts.logger())
}

func TestFastHTTPLoggerIsUsable(t *testing.T) {
	opts := DefaultOptions()
	logger := opts.FastHTTPLogger()
	require.NotNil(t, logger)
	// Must not panic when invoked like fasthttp would.
	logger.Printf("h2 options test: %d", 1)
}
