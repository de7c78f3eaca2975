// Package contact locates the contact record of an authenticated principal
// and exposes the contact HTTP endpoints.
//
// Resolution order is fixed: an oid (or objectidentifier) claim is looked
// up through adx_externalidentity, otherwise the nameidentifier claim is
// read as a contact id. A federated object id always wins over a portal
// contact id.
package contact
