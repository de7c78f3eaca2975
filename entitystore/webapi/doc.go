// Package webapi implements entitystore.Client over the Dataverse Web API.
//
// The client authenticates with the OAuth2 client credentials flow using the
// values of a connection string:
//
//	AuthType=ClientSecret;Url=https://org.crm.dynamics.com;ClientId=...;ClientSecret=...;TenantId=...
//
// One Client is meant to be shared by the process. Callers that need an
// isolated session call Clone and Close the returned client when done.
package webapi
