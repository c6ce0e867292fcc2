package auth

import "crypto/subtle"

// TokenGuard admits server-to-server calls that present the bot token. It is
// a plain secret comparison and has nothing to do with the WebApp HMAC.
type TokenGuard struct {
	token []byte
}

func NewTokenGuard(botToken string) *TokenGuard {
	return &TokenGuard{token: []byte(botToken)}
}

// Allow reports whether provided equals the configured token. An unset token
// admits nobody.
func (g *TokenGuard) Allow(provided string) bool {
	if len(g.token) == 0 || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare(g.token, []byte(provided)) == 1
}
