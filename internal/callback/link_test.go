package callback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtdxp-os/internal/auth"
)

func TestFromLink(t *testing.T) {
	tests := []struct {
		name  string
		link  string
		route string
	}{
		{"confirm", "http://127.0.0.1:54321/auth/confirm?token_hash=h&type=signup", RouteConfirm},
		{"reset with slash", "http://localhost/auth/reset-password/?token_hash=h&type=recovery", RouteResetPassword},
		{"verify", "https://app.example.com/auth/verify?token=h&type=magiclink", RouteVerify},
		{"other path", "https://app.example.com/welcome?token_hash=h&type=email", RouteCallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromLink(tt.link)
			require.NoError(t, err)
			assert.Equal(t, tt.route, got.Route)
			assert.Equal(t, "h", got.Callback.TokenHash)
		})
	}
}

func TestFromLink_Invalid(t *testing.T) {
	_, err := FromLink("http://localhost/auth/confirm?type=signup")
	assert.ErrorIs(t, err, auth.ErrInvalidLink)
}
