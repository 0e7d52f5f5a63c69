package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLower(t *testing.T) {
	assert.Equal(t, []byte("content-type"), ToLower([]byte("Content-Type")))
	assert.Equal(t, []byte("x-h2-test"), ToLower([]byte("X-H2-Test")))
}
