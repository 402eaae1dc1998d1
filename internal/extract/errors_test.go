package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"callscribe/internal/domain"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", &Error{Kind: KindTimeout}, true},
		{"navigation", &Error{Kind: KindNavigation}, true},
		{"redirect", &Error{Kind: KindRedirect}, true},
		{"container", &Error{Kind: KindContainerMissing}, true},
		{"browser", &Error{Kind: KindBrowser}, true},
		{"internal", &Error{Kind: KindInternal}, true},
		{"auth", &Error{Kind: KindAuthRequired}, false},
		{"invalid input", &Error{Kind: KindInvalidInput}, false},
		{"wrapped auth", fmt.Errorf("attempt: %w", &Error{Kind: KindAuthRequired}), false},
		{"invalid url sentinel", domain.ErrInvalidURL, false},
		{"unknown", errFake, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestNewError_DeadlineIsTimeout(t *testing.T) {
	err := newError(KindBrowser, "acquire session", fmt.Errorf("launch: %w", context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, err.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "navigate: redirect: boom", (&Error{Kind: KindRedirect, Op: "navigate", Err: fmt.Errorf("boom")}).Error())
	assert.Equal(t, "navigate: auth_required", (&Error{Kind: KindAuthRequired, Op: "navigate"}).Error())
}
