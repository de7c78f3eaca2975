// Package portals validates bearer tokens issued by the Power Apps portals
// OAuth 2.0 implicit grant flow.
//
// The portal publishes its RSA signing key as PEM text at
// https://{domain}/_services/auth/publickey. NewTokenValidator downloads that
// key once while the process starts and fails if it cannot, so a service never
// runs without a usable verification key. Set Config.KeyRefreshInterval to
// keep refreshing the key in the background; the last good key stays in use
// when a refresh fails.
//
// Audience is recorded but not enforced unless Config.ValidateAudience is set,
// matching the portal documentation where the token audience is the client id
// of the calling application.
package portals
