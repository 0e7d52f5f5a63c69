package h2

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestServeSimpleGetEcho(t *testing.T) {
	ln := listenLoopback(t)

	handler := func(st *Stream, req *Request, rw *ResponseWriter) {
		rw.Header().SetStatusCode(200)
		rw.Header().Set("content-type", "text/plain")
		_, _ = rw.Write(req.Body())
	}

	go func() { _ = Serve(ln, handler, DefaultOptions()) }()

	conn, err := Connect(ln.Addr().String(), DefaultOptions())
	require.NoError(t, err)
	defer conn.Close(NoError)

	_, res, err := conn.Request("POST", "http", "example.com", "/echo", nil, []byte("hello world"))
	require.NoError(t, err)

	assert.EqualValues(t, 200, res.StatusCode())
	assert.Equal(t, []byte("hello world"), res.Body())
}

func TestServeMultipleStreamsOnOneConnection(t *testing.T) {
	ln := listenLoopback(t)

	handler := func(st *Stream, req *Request, rw *ResponseWriter) {
		rw.Header().SetStatusCode(200)
		_, _ = rw.Write(req.Body())
	}
	go func() { _ = Serve(ln, handler, DefaultOptions()) }()

	conn, err := Connect(ln.Addr().String(), DefaultOptions())
	require.NoError(t, err)
	defer conn.Close(NoError)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, res, err := conn.Request("GET", "http", "example.com", "/r", nil, nil)
			assert.NoError(t, err)
			if err == nil {
				assert.EqualValues(t, 200, res.StatusCode())
			}
		}(i)
	}
	wg.Wait()
}

func TestServeMaxConcurrentStreamsRefusesExcess(t *testing.T) {
	ln := listenLoopback(t)

	block := make(chan struct{})
	handler := func(st *Stream, req *Request, rw *ResponseWriter) {
		<-block
		rw.Header().SetStatusCode(200)
		_, _ = rw.Write(nil)
	}

	opts := DefaultOptions()
	opts.MaxConcurrentStreams = 1
	go func() { _ = Serve(ln, handler, opts) }()

	conn, err := Connect(ln.Addr().String(), DefaultOptions())
	require.NoError(t, err)
	defer conn.Close(NoError)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _, err := conn.Request("GET", "http", "example.com", "/slow", nil, nil)
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(block)

	var errCount, okCount int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			errCount++
		} else {
			okCount++
		}
	}
	assert.GreaterOrEqual(t, okCount, 1)
	assert.Equal(t, 1, errCount)
}
