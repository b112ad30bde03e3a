package telegram

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTransport struct {
	calls int
	err   error
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, f.err
}

func post(t *testing.T, method string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot123:abc/"+method, strings.NewReader(`{"chat_id":1}`))
	require.NoError(t, err)
	return req
}

func TestRetryTransportKeepsMessageCallsSingle(t *testing.T) {
	base := &failingTransport{err: syscall.ECONNRESET}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}

	_, err := rt.RoundTrip(post(t, "sendMessage"))
	require.Error(t, err)
	assert.Equal(t, 1, base.calls)

	base.calls = 0
	_, err = rt.RoundTrip(post(t, "getUpdates"))
	require.Error(t, err)
	assert.Equal(t, 4, base.calls)
}

func TestRetryTransportRepeatsUnsentMessageCalls(t *testing.T) {
	base := &failingTransport{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	rt := &retryTransport{base: base, maxRetries: 2, backoff: time.Millisecond}

	_, err := rt.RoundTrip(post(t, "copyMessage"))
	require.Error(t, err)
	assert.Equal(t, 3, base.calls)
}
