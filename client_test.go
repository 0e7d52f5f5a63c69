package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectDialFailure(t *testing.T) {
	_, err := Connect("127.0.0.1:0", DefaultOptions())
	require.Error(t, err)
}

func TestHfHelperBuildsHeaderField(t *testing.T) {
	f := hf(":method", "GET")
	defer ReleaseHeaderField(f)

	assert.Equal(t, ":method", f.Key())
	assert.Equal(t, "GET", f.Value())
}
