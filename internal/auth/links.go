package auth

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Callback is the payload of an email link sent by the provider.
type Callback struct {
	TokenHash string
	Type      OTPType
	// Next is an optional in-app destination carried by the link.
	Next string
}

// ParseCallbackLink extracts the token hash and type from a confirmation,
// verification or recovery URL. Older templates name the token "token".
func ParseCallbackLink(raw string) (Callback, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Callback{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	return CallbackFromQuery(u.Query())
}

// CallbackFromQuery reads a Callback out of already-parsed query values.
func CallbackFromQuery(q url.Values) (Callback, error) {
	tokenHash := q.Get("token_hash")
	if tokenHash == "" {
		tokenHash = q.Get("token")
	}
	otpType := q.Get("type")
	if tokenHash == "" || otpType == "" {
		return Callback{}, ErrInvalidLink
	}
	return Callback{
		TokenHash: tokenHash,
		Type:      OTPType(otpType),
		Next:      q.Get("next"),
	}, nil
}

var linkPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// LinkFromEmail scans a saved RFC 5322 message for the first link that
// carries a callback token. Both text/plain and text/html parts are read.
func LinkFromEmail(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("reading email: %w", err)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading email part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		if link, ok := findCallbackLink(string(body)); ok {
			return link, nil
		}
	}

	return "", ErrNoLink
}

func findCallbackLink(text string) (string, bool) {
	for _, candidate := range linkPattern.FindAllString(text, -1) {
		// HTML bodies escape the query separator.
		candidate = strings.ReplaceAll(candidate, "&amp;", "&")
		if _, err := ParseCallbackLink(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
