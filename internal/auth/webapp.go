// Package auth holds the two trust boundaries of the backend: requests from
// the order web app, signed with the Telegram WebApp HMAC scheme, and
// server-to-server calls from the bot, which carry the bot token.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"
)

// webAppKey is the fixed HMAC key Telegram uses to derive the WebApp secret
// from the bot token.
const webAppKey = "WebAppData"

// WebAppAuthenticator verifies data-check strings signed by the Telegram
// WebApp client.
type WebAppAuthenticator struct {
	secret []byte
}

func NewWebAppAuthenticator(botToken string) *WebAppAuthenticator {
	mac := hmac.New(sha256.New, []byte(webAppKey))
	_, _ = mac.Write([]byte(botToken))
	return &WebAppAuthenticator{secret: mac.Sum(nil)}
}

// Sign returns the hex HMAC of dataCheckString under the derived secret.
func (a *WebAppAuthenticator) Sign(dataCheckString string) string {
	mac := hmac.New(sha256.New, a.secret)
	_, _ = mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the hex HMAC of dataCheckString.
// Empty or non-hex input never verifies.
func (a *WebAppAuthenticator) Verify(dataCheckString, signature string) bool {
	if dataCheckString == "" || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, a.secret)
	_, _ = mac.Write([]byte(dataCheckString))
	return hmac.Equal(mac.Sum(nil), provided)
}

// NormalizeDataCheckString turns the &-joined, URL-encoded form the order
// page sends into the newline-joined string Telegram signs.
func NormalizeDataCheckString(raw string) (string, bool) {
	joined := strings.ReplaceAll(raw, "&", "\n")
	out, err := url.PathUnescape(joined)
	if err != nil {
		return "", false
	}
	return out, true
}

// UserID extracts the id of the signed "user" field of a normalized
// data-check string.
func UserID(dataCheckString string) (int64, bool) {
	for _, line := range strings.Split(dataCheckString, "\n") {
		value, ok := strings.CutPrefix(line, "user=")
		if !ok {
			continue
		}
		var user struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal([]byte(value), &user); err != nil || user.ID == 0 {
			return 0, false
		}
		return user.ID, true
	}
	return 0, false
}
