package cookies

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookie names of the auth token pair.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Config carries the cookie-signing secret and per-cookie TTLs. The TTLs
// mirror the access-token and max-session lifetimes so the browser drops
// cookies at the same moment the credentials stop working.
type Config struct {
	Secret     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Sign appends an HMAC-SHA256 signature to the value: "value.base64url(mac)".
func Sign(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Unsign validates a signed cookie value and returns the original value.
// A missing or tampered signature returns ok=false; callers treat that the
// same as an absent cookie.
func Unsign(signed, secret string) (string, bool) {
	idx := strings.LastIndex(signed, ".")
	if idx <= 0 {
		return "", false
	}
	value, sig := signed[:idx], signed[idx+1:]
	want := hmac.New(sha256.New, []byte(secret))
	want.Write([]byte(value))
	wantSig := base64.RawURLEncoding.EncodeToString(want.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(sig), []byte(wantSig)) != 1 {
		return "", false
	}
	return value, true
}

// SetTokenPair writes both signed auth cookies on the response.
func SetTokenPair(c *gin.Context, accessToken, refreshToken string, cfg Config) {
	set(c, AccessTokenCookie, accessToken, cfg.AccessTTL, cfg)
	set(c, RefreshTokenCookie, refreshToken, cfg.RefreshTTL, cfg)
}

// ClearTokenPair expires both auth cookies.
func ClearTokenPair(c *gin.Context, cfg Config) {
	set(c, AccessTokenCookie, "", -time.Second, cfg)
	set(c, RefreshTokenCookie, "", -time.Second, cfg)
}

// Read returns the unsigned value of a signed auth cookie, or ok=false when
// the cookie is absent or its signature does not verify.
func Read(c *gin.Context, name string, cfg Config) (string, bool) {
	raw, err := c.Cookie(name)
	if err != nil || raw == "" {
		return "", false
	}
	return Unsign(raw, cfg.Secret)
}

func set(c *gin.Context, name, value string, ttl time.Duration, cfg Config) {
	signed := ""
	if value != "" {
		signed = Sign(value, cfg.Secret)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, signed, int(ttl.Seconds()), "/", "", cfg.Secure, true)
}
