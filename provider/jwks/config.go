package jwks

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-portal-auth"
)

// Config holds the settings of a JWKS backed validator.
type Config struct {
	// MetadataURL is the OpenID configuration document. When set, JWKSURL
	// and Issuer default to the values it advertises.
	MetadataURL string

	// JWKSURL is the key set endpoint.
	JWKSURL string

	// Issuer is the expected iss claim.
	Issuer string

	// Audience is the expected aud claim. Empty disables the check.
	Audience string

	// ClockSkew tolerance, default 5 minutes.
	ClockSkew time.Duration

	// RefreshInterval of the key set, default one hour.
	RefreshInterval time.Duration

	HTTPClient *http.Client

	Logger         auth.Logger
	LoggerProvider auth.LoggerProvider
}

// Metadata is the subset of the OpenID configuration the validator reads.
type Metadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Discover reads the OpenID configuration document at metadataURL.
func Discover(ctx context.Context, client *http.Client, metadataURL string) (*Metadata, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, auth.WithCause(auth.ErrInvalidArgument, err, map[string]any{
			"provider": "jwks",
			"field":    "metadata_url",
		})
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, auth.WithCause(auth.ErrKeyFetch, err, map[string]any{
			"url": metadataURL,
		})
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, auth.WithCause(auth.ErrKeyFetch, nil, map[string]any{
			"url":    metadataURL,
			"status": res.StatusCode,
		})
	}

	meta := &Metadata{}
	if err := json.NewDecoder(res.Body).Decode(meta); err != nil {
		return nil, auth.WithCause(auth.ErrKeyFormat, err, map[string]any{
			"url": metadataURL,
		})
	}

	if strings.TrimSpace(meta.JWKSURI) == "" {
		return nil, auth.WithCause(auth.ErrKeyFormat, nil, map[string]any{
			"url":    metadataURL,
			"reason": "metadata document has no jwks_uri",
		})
	}

	return meta, nil
}

func (c Config) clockSkew() time.Duration {
	if c.ClockSkew <= 0 {
		return 5 * time.Minute
	}
	return c.ClockSkew
}

func (c Config) refreshInterval() time.Duration {
	if c.RefreshInterval <= 0 {
		return time.Hour
	}
	return c.RefreshInterval
}
