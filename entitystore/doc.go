// Package entitystore defines the client contract for the remote entity
// store that backs portal contacts: entities addressed by logical name and
// GUID, queried with fetch expressions.
//
// Two adapters implement Client: webapi talks to the store's HTTP Web API and
// bunstore keeps entities in a local SQL database for development and tests.
package entitystore
