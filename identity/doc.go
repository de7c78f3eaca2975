// Package identity stores application users as contact records of the
// entity store.
//
// The contact schema has no identity columns, so three generic string
// attributes carry the user fields (see Mapping). Only Create, Delete and
// FindByID are implemented; every other member of the user, login and
// email stores fails with auth.ErrUnsupported and Supports reports which
// operations a caller may rely on.
package identity
