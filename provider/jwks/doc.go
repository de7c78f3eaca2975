// Package jwks validates federated tokens, such as the ones Azure AD B2C
// issues to portal users, against a JSON Web Key Set. Keys are fetched with
// keyfunc and refreshed in the background.
package jwks
