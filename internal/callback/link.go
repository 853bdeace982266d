package callback

import (
	"net/url"
	"strings"

	"github.com/nhle/gtdxp-os/internal/auth"
)

// FromLink builds the Received the listener would have produced for raw.
// Paths other than the known routes are treated as RouteCallback.
func FromLink(raw string) (Received, error) {
	cb, err := auth.ParseCallbackLink(raw)
	if err != nil {
		return Received{}, err
	}

	route := RouteCallback
	if u, err := url.Parse(strings.TrimSpace(raw)); err == nil {
		switch p := strings.TrimRight(u.Path, "/"); p {
		case RouteConfirm, RouteVerify, RouteResetPassword:
			route = p
		}
	}
	return Received{Route: route, Callback: cb}, nil
}
