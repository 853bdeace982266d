package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ResetEmailInterval is the minimum spacing between reset emails sent
// from one client.
const ResetEmailInterval = 60 * time.Second

// Client is a thin HTTP client for the GoTrue REST API. It sends the
// project's anon key on every request and the user's access token on the
// calls that act on the signed-in account. It never retries.
type Client struct {
	baseURL      string
	anonKey      string
	httpClient   *http.Client
	resetLimiter *rate.Limiter
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithResetLimiter replaces the reset-email throttle.
func WithResetLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.resetLimiter = l
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the project at baseURL
// (e.g., https://xyz.supabase.co).
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		resetLimiter: rate.NewLimiter(rate.Every(ResetEmailInterval), 1),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges an email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "",
		credentials{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// signUpResponse covers both provider answers: a bare user when email
// confirmation is required, or a session wrapping the user otherwise.
type signUpResponse struct {
	User
	Nested *User `json:"user"`
}

// SignUp registers a new account. The confirmation email links back to
// redirectURL.
func (c *Client) SignUp(ctx context.Context, email, password, redirectURL string) (*User, error) {
	var resp signUpResponse
	err := c.do(ctx, http.MethodPost, withRedirect("/signup", redirectURL), "",
		credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Nested != nil && resp.Nested.ID != "" {
		return resp.Nested, nil
	}
	return &resp.User, nil
}

// VerifyOTP redeems a token hash from an email link.
func (c *Client) VerifyOTP(ctx context.Context, tokenHash string, otpType OTPType) (*Session, error) {
	body := map[string]string{
		"token_hash": tokenHash,
		"type":       string(otpType),
	}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/verify", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResetPasswordForEmail asks the provider to mail a recovery link that
// leads to redirectURL. Calls closer together than ResetEmailInterval fail
// with ErrResendTooSoon. A failed request does not count against the
// interval.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error {
	r := c.resetLimiter.Reserve()
	if !r.OK() || r.Delay() > 0 {
		r.Cancel()
		return ErrResendTooSoon
	}
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, withRedirect("/recover", redirectURL), "", body, nil); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

// UpdatePassword sets a new password for the account behind accessToken.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*User, error) {
	body := map[string]string{"password": newPassword}
	var user User
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshSession trades a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// GetUser fetches the account behind accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do builds the request, sends it once and decodes either the result or
// the provider's error body.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	accessToken string,
	body interface{},
	result interface{},
) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	bearer := accessToken
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, trimQuery(path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("auth request",
		"method", method,
		"path", trimQuery(path),
		"status", resp.StatusCode,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, trimQuery(path), err)
	}
	return nil
}

// errorBody lists the fields GoTrue uses for error text across versions.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(status int, body []byte) *ProviderError {
	pErr := &ProviderError{Status: status}

	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		pErr.Message = strings.TrimSpace(string(body))
		return pErr
	}

	pErr.Code = eb.ErrorCode
	if pErr.Code == "" && eb.Error != "" && eb.ErrorDescription != "" {
		pErr.Code = eb.Error
	}

	for _, candidate := range []string{eb.Msg, eb.ErrorDescription, eb.Message, eb.Error} {
		if candidate != "" {
			pErr.Message = candidate
			break
		}
	}
	return pErr
}

func withRedirect(path, redirectURL string) string {
	if redirectURL == "" {
		return path
	}
	return path + "?redirect_to=" + url.QueryEscape(redirectURL)
}

func trimQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
