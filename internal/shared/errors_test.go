package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserSafeMessage(t *testing.T) {
	reason := errors.New("token signature invalid")
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrMissingCredentials, "missing credentials"},
		{fmt.Errorf("%w: %w", ErrInvalidCredentials, reason), "invalid credentials"},
		{fmt.Errorf("auth: %w", ErrDuplicateIdentity), ErrDuplicateIdentity.Error()},
		{ErrForbidden, "forbidden"},
		{fmt.Errorf("posts: %w", ErrNotFound), "not found"},
		{fmt.Errorf("%w: email: email", ErrValidation), "validation failed: email: email"},
		{errors.New("dial tcp: connection refused"), "internal error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserSafeMessage(tc.err))
	}
}
