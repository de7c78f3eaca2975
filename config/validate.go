package config

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-portal-auth/entitystore/webapi"
)

var httpMethods = []interface{}{
	"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "*",
}

// Validate checks every section, then the cross section rules.
func (c Config) Validate() error {
	errs := validation.Errors{
		"power_apps_portal":  c.PowerAppsPortal.Validate(),
		"cds_service_client": c.CdsServiceClient.Validate(),
		"store":              c.Store.Validate(),
		"jwks":               c.JWKS.Validate(),
		"server":             c.Server.Validate(),
		"allowed_methods":    validateMethods(c.AllowedMethods),
	}

	if c.Store.Driver == StoreWebAPI && strings.TrimSpace(c.CdsServiceClient.ConnectionString) == "" {
		errs["cds_service_client"] = validation.Errors{
			"connection_string": errors.New("is required by the webapi store"),
		}
	}

	return errs.Filter()
}

func (p PowerAppsPortal) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Domain, validation.Required, is.Host),
		validation.Field(&p.ApplicationID, validation.Required),
		validation.Field(&p.KeyRefreshIntervalExpression, validation.By(func(interface{}) error {
			_, err := p.GetKeyRefreshInterval()
			return err
		})),
	)
}

func (c CdsServiceClient) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TraceLevel, validation.By(func(value interface{}) error {
			_, err := webapi.ParseTraceLevel(value.(string))
			if err != nil {
				return errors.New("must be a known trace level")
			}
			return nil
		})),
	)
}

func (s Store) Validate() error {
	dsn := []validation.Rule{}
	if s.Driver == StoreBunLite {
		dsn = append(dsn, validation.Required)
	}
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(StoreWebAPI, StoreBunLite)),
		validation.Field(&s.DSN, dsn...),
	)
}

func (j JWKS) Validate() error {
	if !j.Enabled {
		return nil
	}
	if j.MetadataURL == "" && j.JWKSURL == "" {
		return errors.New("metadata_url or jwks_url is required when enabled")
	}
	issuer := []validation.Rule{}
	if strings.TrimSpace(j.MetadataURL) == "" {
		issuer = append(issuer, validation.Required)
	}
	return validation.ValidateStruct(&j,
		validation.Field(&j.MetadataURL, is.URL),
		validation.Field(&j.JWKSURL, is.URL),
		validation.Field(&j.Issuer, issuer...),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
	)
}

func validateMethods(methods []string) error {
	for _, m := range methods {
		if err := validation.Validate(strings.ToUpper(strings.TrimSpace(m)), validation.In(httpMethods...)); err != nil {
			return errors.New("contains an unknown method: " + m)
		}
	}
	return nil
}
