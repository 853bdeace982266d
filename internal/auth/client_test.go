package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testAnonKey = "anon-key"

// capturedRequest records what the fake provider saw.
type capturedRequest struct {
	Method        string
	Path          string
	Query         string
	APIKey        string
	Authorization string
	Body          map[string]string
}

func newTestServer(t *testing.T, status int, response string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Query = r.URL.RawQuery
		captured.APIKey = r.Header.Get("apikey")
		captured.Authorization = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&captured.Body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL+"/", testAnonKey), captured
}

func TestClient_SignInWithPassword(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `{
		"access_token": "at",
		"token_type": "bearer",
		"expires_in": 3600,
		"expires_at": 1767348000,
		"refresh_token": "rt",
		"user": {"id": "u1", "email": "ada@example.com"}
	}`)

	session, err := client.SignInWithPassword(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth/v1/token", req.Path)
	assert.Equal(t, "grant_type=password", req.Query)
	assert.Equal(t, testAnonKey, req.APIKey)
	assert.Equal(t, "Bearer "+testAnonKey, req.Authorization)
	assert.Equal(t, "ada@example.com", req.Body["email"])
	assert.Equal(t, "secret1", req.Body["password"])

	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, "rt", session.RefreshToken)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, time.Unix(1767348000, 0), session.Expiry())
}

func TestClient_ProviderMessagesAreVerbatim(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{
			name:     "oauth style",
			status:   http.StatusBadRequest,
			body:     `{"error":"invalid_grant","error_description":"Invalid login credentials"}`,
			wantMsg:  "Invalid login credentials",
			wantCode: "invalid_grant",
		},
		{
			name:     "msg style",
			status:   http.StatusUnprocessableEntity,
			body:     `{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters."}`,
			wantMsg:  "Password should be at least 6 characters.",
			wantCode: "weak_password",
		},
		{
			name:    "message style",
			status:  http.StatusTooManyRequests,
			body:    `{"message":"Email rate limit exceeded"}`,
			wantMsg: "Email rate limit exceeded",
		},
		{
			name:    "plain text",
			status:  http.StatusBadGateway,
			body:    "upstream unavailable",
			wantMsg: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, tt.status, tt.body)

			_, err := client.SignInWithPassword(context.Background(), "a@b.co", "secret1")
			require.Error(t, err)

			var pErr *ProviderError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.status, pErr.Status)
			assert.Equal(t, tt.wantMsg, pErr.Message)
			assert.Equal(t, tt.wantCode, pErr.Code)
			assert.Equal(t, tt.wantMsg, Message(err, "Failed to sign in"))
		})
	}
}

func TestClient_SignUpBareUser(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `{"id":"u2","email":"new@example.com"}`)

	user, err := client.SignUp(context.Background(), "new@example.com", "secret1", "http://127.0.0.1:54321/auth/callback")
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/signup", req.Path)
	assert.Equal(t, "redirect_to=http%3A%2F%2F127.0.0.1%3A54321%2Fauth%2Fcallback", req.Query)
	assert.Equal(t, "u2", user.ID)
	assert.Equal(t, "new@example.com", user.Email)
}

func TestClient_SignUpAutoConfirmed(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"access_token":"at","user":{"id":"u3","email":"auto@example.com"}}`)

	user, err := client.SignUp(context.Background(), "auto@example.com", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "u3", user.ID)
}

func TestClient_VerifyOTP(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `{"access_token":"at","refresh_token":"rt","user":{"id":"u1"}}`)

	session, err := client.VerifyOTP(context.Background(), "hash123", OTPSignup)
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/verify", req.Path)
	assert.Equal(t, "hash123", req.Body["token_hash"])
	assert.Equal(t, "signup", req.Body["type"])
	assert.Equal(t, "at", session.AccessToken)
}

func TestClient_ResetPasswordForEmailIsThrottled(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `{}`)

	err := client.ResetPasswordForEmail(context.Background(), "ada@example.com", "http://127.0.0.1:54321/auth/reset-password")
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/recover", req.Path)
	assert.Equal(t, "ada@example.com", req.Body["email"])

	req.Path = ""
	err = client.ResetPasswordForEmail(context.Background(), "ada@example.com", "")
	require.ErrorIs(t, err, ErrResendTooSoon)
	assert.Empty(t, req.Path, "throttled call must not reach the provider")
	assert.Equal(t, "Please wait before requesting another reset email", Message(err, "Failed to send reset email"))
}

func TestClient_ResetPasswordForEmailRetryAfterFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"msg":"Error sending recovery email"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, testAnonKey)

	err := client.ResetPasswordForEmail(context.Background(), "ada@example.com", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResendTooSoon)
	assert.Equal(t, "Error sending recovery email", Message(err, ""))

	require.NoError(t, client.ResetPasswordForEmail(context.Background(), "ada@example.com", ""))
	assert.Equal(t, 2, calls)

	err = client.ResetPasswordForEmail(context.Background(), "ada@example.com", "")
	require.ErrorIs(t, err, ErrResendTooSoon)
	assert.Equal(t, 2, calls, "a successful send still starts the interval")
}

func TestClient_ResetLimiterOverride(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{}`)
	WithResetLimiter(rate.NewLimiter(rate.Inf, 1))(client)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.ResetPasswordForEmail(context.Background(), "ada@example.com", ""))
	}
}

func TestClient_AuthenticatedCalls(t *testing.T) {
	t.Run("update password", func(t *testing.T) {
		client, req := newTestServer(t, http.StatusOK, `{"id":"u1","email":"ada@example.com"}`)
		user, err := client.UpdatePassword(context.Background(), "user-token", "newsecret")
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/auth/v1/user", req.Path)
		assert.Equal(t, "Bearer user-token", req.Authorization)
		assert.Equal(t, "newsecret", req.Body["password"])
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("get user", func(t *testing.T) {
		client, req := newTestServer(t, http.StatusOK, `{"id":"u1","email":"ada@example.com"}`)
		user, err := client.GetUser(context.Background(), "user-token")
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "Bearer user-token", req.Authorization)
		assert.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("sign out", func(t *testing.T) {
		client, req := newTestServer(t, http.StatusNoContent, "")
		require.NoError(t, client.SignOut(context.Background(), "user-token"))
		assert.Equal(t, "/auth/v1/logout", req.Path)
	})

	t.Run("refresh", func(t *testing.T) {
		client, req := newTestServer(t, http.StatusOK, `{"access_token":"at2","refresh_token":"rt2"}`)
		session, err := client.RefreshSession(context.Background(), "rt")
		require.NoError(t, err)
		assert.Equal(t, "grant_type=refresh_token", req.Query)
		assert.Equal(t, "rt", req.Body["refresh_token"])
		assert.Equal(t, "at2", session.AccessToken)
	})

	t.Run("expired token", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusUnauthorized, `{"code":401,"msg":"invalid JWT: token is expired"}`)
		_, err := client.GetUser(context.Background(), "stale")
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, "invalid JWT: token is expired", err.Error())
	})
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "", Message(nil, "Failed to sign in"))
	assert.Equal(t, "Failed to sign in", Message(context.DeadlineExceeded, "Failed to sign in"))
	assert.Equal(t, "Invalid verification link", Message(ErrInvalidLink, "Verification failed"))
}
