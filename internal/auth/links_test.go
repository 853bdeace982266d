package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    Callback
		wantErr bool
	}{
		{
			name: "token hash",
			link: "http://127.0.0.1:54321/auth/confirm?token_hash=abc&type=signup",
			want: Callback{TokenHash: "abc", Type: OTPSignup},
		},
		{
			name: "legacy token with next",
			link: "http://127.0.0.1:54321/auth/verify?token=xyz&type=recovery&next=%2Fauth%2Freset-password",
			want: Callback{TokenHash: "xyz", Type: OTPRecovery, Next: "/auth/reset-password"},
		},
		{
			name:    "missing type",
			link:    "http://127.0.0.1:54321/auth/confirm?token_hash=abc",
			wantErr: true,
		},
		{
			name:    "missing token",
			link:    "http://127.0.0.1:54321/auth/confirm?type=signup",
			wantErr: true,
		},
		{
			name:    "not a url",
			link:    "::::",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackLink(tt.link)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLink)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const multipartEmail = "From: GTDXP-OS <noreply@example.com>\r\n" +
	"To: ada@example.com\r\n" +
	"Subject: Confirm your signup\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Visit https://example.com/help for help.\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<a href=\"http://127.0.0.1:54321/auth/confirm?token_hash=h1&amp;type=signup\">Confirm</a>\r\n" +
	"--b1--\r\n"

const plainEmail = "From: noreply@example.com\r\n" +
	"Subject: Reset your password\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Follow this link: http://127.0.0.1:54321/auth/reset-password?token_hash=r1&type=recovery\r\n"

func TestLinkFromEmail(t *testing.T) {
	link, err := LinkFromEmail(strings.NewReader(multipartEmail))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:54321/auth/confirm?token_hash=h1&type=signup", link)

	link, err = LinkFromEmail(strings.NewReader(plainEmail))
	require.NoError(t, err)

	cb, err := ParseCallbackLink(link)
	require.NoError(t, err)
	assert.Equal(t, Callback{TokenHash: "r1", Type: OTPRecovery}, cb)
}

func TestLinkFromEmail_NoLink(t *testing.T) {
	email := "From: noreply@example.com\r\nContent-Type: text/plain\r\n\r\nWelcome aboard!\r\n"

	_, err := LinkFromEmail(strings.NewReader(email))
	assert.ErrorIs(t, err, ErrNoLink)
}
