package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-portal-auth/entitystore/webapi"
	"github.com/goliatone/go-portal-auth/provider/jwks"
	"github.com/goliatone/go-portal-auth/provider/portals"
)

const (
	StoreWebAPI  = "webapi"
	StoreBunLite = "bunstore"
)

// Config is the application configuration, loaded from config/app.json.
type Config struct {
	PowerAppsPortal  PowerAppsPortal  `json:"power_apps_portal" koanf:"power_apps_portal"`
	CdsServiceClient CdsServiceClient `json:"cds_service_client" koanf:"cds_service_client"`
	Store            Store            `json:"store" koanf:"store"`
	JWKS             JWKS             `json:"jwks" koanf:"jwks"`
	Server           Server           `json:"server" koanf:"server"`
	AllowedHosts     []string         `json:"allowed_hosts" koanf:"allowed_hosts"`
	AllowedMethods   []string         `json:"allowed_methods" koanf:"allowed_methods"`
}

// PowerAppsPortal holds the portal the bearer tokens come from.
type PowerAppsPortal struct {
	Domain                       string `json:"domain" koanf:"domain"`
	ApplicationID                string `json:"application_id" koanf:"application_id"`
	ValidateAudience             bool   `json:"validate_audience" koanf:"validate_audience"`
	KeyRefreshIntervalExpression string `json:"key_refresh_interval" koanf:"key_refresh_interval"`
}

// CdsServiceClient holds the remote entity store connection.
type CdsServiceClient struct {
	ConnectionString                  string `json:"connection_string" koanf:"connection_string"`
	TraceLevel                        string `json:"trace_level" koanf:"trace_level"`
	IncludeOrganizationServiceContext bool   `json:"include_organization_service_context" koanf:"include_organization_service_context"`
}

// Store selects the entity store backend.
type Store struct {
	Driver string `json:"driver" koanf:"driver"`
	DSN    string `json:"dsn" koanf:"dsn"`
}

// JWKS enables a second validator for federated tokens.
type JWKS struct {
	Enabled     bool   `json:"enabled" koanf:"enabled"`
	MetadataURL string `json:"metadata_url" koanf:"metadata_url"`
	JWKSURL     string `json:"jwks_url" koanf:"jwks_url"`
	Issuer      string `json:"issuer" koanf:"issuer"`
	Audience    string `json:"audience" koanf:"audience"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Address string `json:"address" koanf:"address"`
	Banner  string `json:"banner" koanf:"banner"`
}

// Defaults returns a configuration with every optional value filled in.
func Defaults() *Config {
	return &Config{
		CdsServiceClient: CdsServiceClient{
			TraceLevel:                        webapi.TraceWarning.String(),
			IncludeOrganizationServiceContext: true,
		},
		Store: Store{
			Driver: StoreWebAPI,
		},
		Server: Server{
			Address: ":8080",
			Banner:  "CdsWeb App",
		},
		AllowedHosts:   []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}
}

// GetKeyRefreshInterval returns the parsed refresh interval, zero when unset.
func (p PowerAppsPortal) GetKeyRefreshInterval() (time.Duration, error) {
	expr := strings.TrimSpace(p.KeyRefreshIntervalExpression)
	if expr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		return 0, fmt.Errorf("unable to parse key refresh interval %q: %w", expr, err)
	}
	return dur, nil
}

// PortalConfig maps the section to the validator settings.
func (p PowerAppsPortal) PortalConfig() (portals.Config, error) {
	cfg := portals.DefaultConfig(p.Domain, p.ApplicationID)
	cfg.ValidateAudience = p.ValidateAudience

	interval, err := p.GetKeyRefreshInterval()
	if err != nil {
		return portals.Config{}, err
	}
	cfg.KeyRefreshInterval = interval
	return cfg, nil
}

// ClientConfig maps the section to the Web API client settings.
func (c CdsServiceClient) ClientConfig() webapi.Config {
	return webapi.Config{
		ConnectionString: c.ConnectionString,
		TraceLevel:       c.TraceLevel,
	}
}

// ValidatorConfig maps the section to the JWKS validator settings.
func (j JWKS) ValidatorConfig() jwks.Config {
	return jwks.Config{
		MetadataURL: j.MetadataURL,
		JWKSURL:     j.JWKSURL,
		Issuer:      j.Issuer,
		Audience:    j.Audience,
	}
}

// CORSOrigins returns the allowed origins joined for the CORS middleware.
func (c Config) CORSOrigins() string {
	return strings.Join(c.AllowedHosts, ",")
}

// CORSMethods returns the allowed methods joined for the CORS middleware.
func (c Config) CORSMethods() string {
	methods := make([]string, 0, len(c.AllowedMethods))
	for _, m := range c.AllowedMethods {
		methods = append(methods, strings.ToUpper(strings.TrimSpace(m)))
	}
	return strings.Join(methods, ",")
}
