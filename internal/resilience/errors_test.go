package resilience

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"input error", eris.Wrap(ErrInput, "bad row"), 1},
		{"validation error", eris.Wrap(ErrValidation, "bad record"), 1},
		{"lookup unavailable", ErrLookupUnavailable, 1},
		{"storage error", eris.Wrap(ErrStorage, "disk full"), 2},
		{"wrapped storage error", eris.Wrap(eris.Wrap(ErrStorage, "inner"), "outer"), 2},
		{"plain error", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"lookup unavailable", eris.Wrap(ErrLookupUnavailable, "registry 503"), true},
		{"connection reset string", errors.New("read tcp: connection reset by peer"), true},
		{"no such host", errors.New("dial tcp: lookup registry.example: no such host"), true},
		{"io timeout", errors.New("read tcp: i/o timeout"), true},
		{"validation is permanent", ErrValidation, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
