package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"port not found", ErrPortNotFound, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"invalid options", ErrInvalidConnectOptions, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("x")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("x")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(ErrDepthExceeded))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", ErrNameClash)))
	assert.True(t, IsFatal(WrapFatal(errors.New("boom"), "Element", "Init", "publish")))
	assert.False(t, IsFatal(ErrPortNotFound))
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.True(t, IsInvalid(ErrInvalidConnectOptions))
	assert.True(t, IsInvalid(WrapInvalid(ErrInvalidURI, "URI", "Parse", "scheme")))
	assert.False(t, IsInvalid(ErrConnectRejected))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorFatal, Classify(ErrLinkLimit))
	assert.Equal(t, ErrorInvalid, Classify(ErrStatusFlag))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "A", "B", "c"))

	base := errors.New("root cause")
	err := Wrap(base, "Port", "ConnectTo", "direction check")
	assert.Equal(t, "Port.ConnectTo: direction check failed: root cause", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("root cause")

	err := WrapInvalid(base, "Port", "ConnectTo", "options")
	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Port", ce.Component)
	assert.Equal(t, "ConnectTo", ce.Operation)
	assert.ErrorIs(t, err, base)

	assert.Nil(t, WrapFatal(nil, "a", "b", "c"))
	assert.Nil(t, WrapTransient(nil, "a", "b", "c"))
	assert.True(t, IsTransient(WrapTransient(base, "a", "b", "c")))
}

func TestFatalPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, IsFatal(err))
		assert.ErrorIs(t, err, ErrDepthExceeded)
	}()
	Fatal(ErrDepthExceeded, "Element", "New", "attach")
}
