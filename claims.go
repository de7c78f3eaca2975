package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ClaimOID is the object id claim issued by Azure AD and Azure AD B2C.
	ClaimOID = "oid"
	// ClaimObjectIdentifier is the long form of the object id claim.
	ClaimObjectIdentifier = "http://schemas.microsoft.com/identity/claims/objectidentifier"
	// ClaimNameIdentifier carries the portal contact id.
	ClaimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
)

// claimAliases lists the short JWT names each long claim type is also issued as.
var claimAliases = map[string][]string{
	ClaimNameIdentifier: {"nameid", "sub"},
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	Raw map[string]any `json:"-"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// UnmarshalJSON decodes registered claims and keeps every claim in Raw.
func (c *JWTClaims) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var registered jwt.RegisteredClaims
	if err := json.Unmarshal(data, &registered); err != nil {
		return err
	}

	c.RegisteredClaims = registered
	c.Raw = raw
	return nil
}

// MarshalJSON writes Raw merged with the registered claims.
func (c JWTClaims) MarshalJSON() ([]byte, error) {
	registered, err := json.Marshal(c.RegisteredClaims)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	for k, v := range c.Raw {
		out[k] = v
	}

	var reg map[string]any
	if err := json.Unmarshal(registered, &reg); err != nil {
		return nil, err
	}
	for k, v := range reg {
		out[k] = v
	}

	return json.Marshal(out)
}

// Claim returns the first non empty value stored under name or one of its aliases.
func (c *JWTClaims) Claim(name string) (string, bool) {
	if c == nil {
		return "", false
	}

	for _, key := range append([]string{name}, claimAliases[name]...) {
		if val, ok := c.lookup(key); ok {
			return val, true
		}
	}
	return "", false
}

func (c *JWTClaims) lookup(key string) (string, bool) {
	if key == "sub" && c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject, true
	}

	raw, ok := c.Raw[key]
	if !ok || raw == nil {
		return "", false
	}

	var val string
	switch typed := raw.(type) {
	case string:
		val = typed
	case []any:
		if len(typed) == 0 {
			return "", false
		}
		val = fmt.Sprint(typed[0])
	default:
		val = fmt.Sprint(typed)
	}

	val = strings.TrimSpace(val)
	return val, val != ""
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the object id when present, the subject otherwise
func (c *JWTClaims) UserID() string {
	if oid, ok := c.Claim(ClaimOID); ok {
		return oid
	}
	return c.Subject()
}

// Issuer returns the issuer claim
func (c *JWTClaims) Issuer() string {
	return c.RegisteredClaims.Issuer
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// MapClaims is a ClaimSource over a plain map, handy for non JWT principals.
type MapClaims map[string]string

// Claim implements ClaimSource.
func (m MapClaims) Claim(name string) (string, bool) {
	for _, key := range append([]string{name}, claimAliases[name]...) {
		if val := strings.TrimSpace(m[key]); val != "" {
			return val, true
		}
	}
	return "", false
}
