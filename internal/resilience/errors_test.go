package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError(errors.New("server overloaded"), 503)))
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	assert.True(t, IsTransient(fmt.Errorf("api call failed: %w", inner)))
	assert.True(t, IsTransient(eris.Wrap(inner, "dataloop: get item")))
}

func TestIsTransient_NilAndRegular(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("invalid input: missing field")))
}

func TestIsTransient_ContextCanceled(t *testing.T) {
	assert.False(t, IsTransient(fmt.Errorf("query: %w", context.Canceled)))
}

func TestIsTransient_Syscall(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)))
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	assert.True(t, IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}))
}

func TestIsTransient_StringPatterns(t *testing.T) {
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"driver: bad connection",
	} {
		assert.True(t, IsTransient(errors.New(p)), p)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 405, 409, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestFromHTTPStatus(t *testing.T) {
	base := errors.New("upstream")

	err := FromHTTPStatus(base, 503)
	var te *TransientError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 503, te.StatusCode)
	assert.True(t, errors.Is(err, base))

	assert.Same(t, base, FromHTTPStatus(base, 400))
	assert.NoError(t, FromHTTPStatus(nil, 503))
}

func TestTransientError_Message(t *testing.T) {
	inner := errors.New("something went wrong")
	assert.Equal(t, "something went wrong", NewTransientError(inner, 503).Error())
}
