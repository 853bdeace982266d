package callback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtdxp-os/internal/auth"
)

func receive(t *testing.T, cmd tea.Cmd) Received {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		got, ok := msg.(Received)
		require.True(t, ok)
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no callback received")
		return Received{}
	}
}

func TestServer_Routes(t *testing.T) {
	tests := []struct {
		path string
		want Received
	}{
		{
			path: "/auth/confirm?token_hash=abc&type=signup",
			want: Received{Route: RouteConfirm, Callback: auth.Callback{TokenHash: "abc", Type: auth.OTPSignup}},
		},
		{
			path: "/auth/verify?token=legacy&type=magiclink",
			want: Received{Route: RouteVerify, Callback: auth.Callback{TokenHash: "legacy", Type: auth.OTPMagicLink}},
		},
		{
			path: "/auth/reset-password?token_hash=r1&type=recovery",
			want: Received{Route: RouteResetPassword, Callback: auth.Callback{TokenHash: "r1", Type: auth.OTPRecovery}},
		},
		{
			path: "/auth/callback?token_hash=c1&type=email&next=%2Fsystem",
			want: Received{Route: RouteCallback, Callback: auth.Callback{TokenHash: "c1", Type: auth.OTPEmail, Next: "/system"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.want.Route, func(t *testing.T) {
			s := NewServer("127.0.0.1:0", nil)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "return to your terminal")
			assert.Equal(t, tt.want, receive(t, s.WaitForCallback()))
		})
	}
}

func TestServer_InvalidLink(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/confirm?type=signup", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid confirmation link")
	assert.Empty(t, s.resultCh)
}

func TestServer_UnknownRoute(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DropsWhenFull(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)

	for i := 0; i < cap(s.resultCh)+2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/confirm?token_hash=h&type=signup", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, s.resultCh, cap(s.resultCh))
}

func TestServer_StartShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "second start fails")

	resp, err := http.Get("http://" + s.Addr() + "/auth/confirm?token_hash=live&type=signup")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live", receive(t, s.WaitForCallback()).Callback.TokenHash)

	shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, s.Shutdown(shutdownCtx))
	require.NoError(t, s.Shutdown(shutdownCtx))
	assert.Equal(t, "127.0.0.1:0", s.Addr())
}
