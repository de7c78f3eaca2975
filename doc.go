// Package auth holds the contracts shared by the portal authentication
// packages: validated bearer claims, claim lookup with the long claim type
// aliases issued by Power Apps portals and Azure AD B2C, token validators and
// the error taxonomy used across the module.
//
// Packages:
//   - provider/portals resolves the portal signing key and validates the
//     implicit grant tokens it issues.
//   - provider/jwks validates federated tokens against a JWKS endpoint.
//   - middleware/jwtware runs the bearer pipeline on go-router handlers.
//   - entitystore and its adapters talk to the remote entity store.
//   - contact maps claims to the acting contact record.
//   - identity adapts the user store contract onto contact entities.
package auth
