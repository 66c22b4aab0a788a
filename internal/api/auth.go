package api

import (
	"context"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySlack is how close to expiry a token may get before we refresh it
// rather than risk a 401 mid-mutation.
const expirySlack = 30 * time.Second

type refreshResponse struct {
	Token string `json:"token"`
}

// ensureFreshToken refreshes the bearer token when its exp claim is past
// or imminent. Opaque (non-JWT) tokens are passed through untouched.
func (c *Client) ensureFreshToken(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	exp, ok := tokenExpiry(c.token)
	if !ok || time.Until(exp) > expirySlack {
		return nil
	}
	log.Printf("[API] Token expires at %s, refreshing", exp.Format(time.RFC3339))
	return c.refreshToken(ctx)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server is the only party that validates tokens, the client just wants
// to know whether sending this one is pointless.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) refreshToken(ctx context.Context) error {
	// Bypasses doRequest: the refresh call must not itself trigger a
	// freshness check.
	var out refreshResponse
	if err := c.rawPost(ctx, "/auth/refresh", &out); err != nil {
		return err
	}
	if out.Token != "" {
		c.token = out.Token
	}
	return nil
}
