package webapi

import (
	"strings"

	"github.com/goliatone/go-portal-auth"
)

// AuthTypeClientSecret is the only supported authentication type.
const AuthTypeClientSecret = "ClientSecret"

// ConnectionString holds the parsed parts of a connection string.
type ConnectionString struct {
	AuthType     string
	URL          string
	ClientID     string
	ClientSecret string
	TenantID     string
}

var connectionStringKeys = map[string]string{
	"authtype":     "authtype",
	"url":          "url",
	"serviceuri":   "url",
	"server":       "url",
	"clientid":     "clientid",
	"appid":        "clientid",
	"clientsecret": "clientsecret",
	"secret":       "clientsecret",
	"tenantid":     "tenantid",
	"tenant":       "tenantid",
}

// ParseConnectionString parses key=value pairs separated by semicolons. Keys
// are case insensitive and unknown keys are ignored.
func ParseConnectionString(raw string) (ConnectionString, error) {
	var cs ConnectionString

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return cs, invalidConnectionString("malformed segment", key)
		}

		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch connectionStringKeys[strings.ToLower(strings.TrimSpace(key))] {
		case "authtype":
			cs.AuthType = value
		case "url":
			cs.URL = strings.TrimRight(value, "/")
		case "clientid":
			cs.ClientID = value
		case "clientsecret":
			cs.ClientSecret = value
		case "tenantid":
			cs.TenantID = value
		}
	}

	if cs.AuthType == "" {
		cs.AuthType = AuthTypeClientSecret
	}

	if !strings.EqualFold(cs.AuthType, AuthTypeClientSecret) {
		return cs, invalidConnectionString("unsupported auth type", cs.AuthType)
	}

	required := map[string]string{
		"Url":          cs.URL,
		"ClientId":     cs.ClientID,
		"ClientSecret": cs.ClientSecret,
		"TenantId":     cs.TenantID,
	}
	for _, name := range []string{"Url", "ClientId", "ClientSecret", "TenantId"} {
		if required[name] == "" {
			return cs, invalidConnectionString("missing value", name)
		}
	}

	return cs, nil
}

func invalidConnectionString(reason, field string) error {
	return auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
		"reason": "connection string: " + reason,
		"field":  field,
	})
}
