package portals

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-portal-auth"
)

const (
	// PublicKeyPath is the portal endpoint that serves the signing key.
	PublicKeyPath = "/_services/auth/publickey"
	// DefaultClockSkew is the tolerance applied to exp, nbf and iat.
	DefaultClockSkew = 5 * time.Minute
	// SigningAlgorithm is the only algorithm portals sign tokens with.
	SigningAlgorithm = "RS256"
)

// Config holds the portal settings used to validate tokens.
type Config struct {
	// Domain is the portal host name, e.g. "contoso.powerappsportals.com".
	// It is also the expected token issuer.
	Domain string

	// ApplicationID is the client id registered for the implicit grant flow.
	ApplicationID string

	// ValidateAudience enforces aud == ApplicationID. Off by default.
	ValidateAudience bool

	// ClockSkew overrides DefaultClockSkew.
	ClockSkew time.Duration

	// KeyRefreshInterval enables periodic key refresh when greater than zero.
	KeyRefreshInterval time.Duration

	// HTTPClient is used to download the signing key.
	// Default: a client with a 30 second timeout.
	HTTPClient *http.Client

	Logger         auth.Logger
	LoggerProvider auth.LoggerProvider
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(domain, applicationID string) Config {
	return Config{
		Domain:        domain,
		ApplicationID: applicationID,
		ClockSkew:     DefaultClockSkew,
	}
}

// PublicKeyURL returns the signing key endpoint for domain.
func PublicKeyURL(domain string) string {
	return fmt.Sprintf("https://%s%s", normalizeDomain(domain), PublicKeyPath)
}

func (c Config) domain() string {
	return normalizeDomain(c.Domain)
}

func (c Config) clockSkew() time.Duration {
	if c.ClockSkew <= 0 {
		return DefaultClockSkew
	}
	return c.ClockSkew
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "/")
}
