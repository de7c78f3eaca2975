package identity

import (
	"context"
)

// Operation names a member of the user, login or email store.
type Operation string

const (
	OpCreate                Operation = "create"
	OpDelete                Operation = "delete"
	OpFindByID              Operation = "find_by_id"
	OpUpdate                Operation = "update"
	OpFindByName            Operation = "find_by_name"
	OpGetUserID             Operation = "get_user_id"
	OpGetUserName           Operation = "get_user_name"
	OpSetUserName           Operation = "set_user_name"
	OpGetNormalizedUserName Operation = "get_normalized_user_name"
	OpSetNormalizedUserName Operation = "set_normalized_user_name"
	OpAddLogin              Operation = "add_login"
	OpRemoveLogin           Operation = "remove_login"
	OpGetLogins             Operation = "get_logins"
	OpFindByLogin           Operation = "find_by_login"
	OpSetEmail              Operation = "set_email"
	OpGetEmail              Operation = "get_email"
	OpGetEmailConfirmed     Operation = "get_email_confirmed"
	OpSetEmailConfirmed     Operation = "set_email_confirmed"
	OpFindByEmail           Operation = "find_by_email"
	OpGetNormalizedEmail    Operation = "get_normalized_email"
	OpSetNormalizedEmail    Operation = "set_normalized_email"
)

var supported = map[Operation]bool{
	OpCreate:   true,
	OpDelete:   true,
	OpFindByID: true,
}

// Supports reports whether the store implements op.
func (s *Store) Supports(op Operation) bool {
	return supported[op]
}

func (s *Store) Update(context.Context, *User) (Result, error) {
	return Result{}, unsupported(OpUpdate)
}

func (s *Store) FindByName(context.Context, string) (*User, error) {
	return nil, unsupported(OpFindByName)
}

func (s *Store) GetUserID(context.Context, *User) (string, error) {
	return "", unsupported(OpGetUserID)
}

func (s *Store) GetUserName(context.Context, *User) (string, error) {
	return "", unsupported(OpGetUserName)
}

func (s *Store) SetUserName(context.Context, *User, string) error {
	return unsupported(OpSetUserName)
}

func (s *Store) GetNormalizedUserName(context.Context, *User) (string, error) {
	return "", unsupported(OpGetNormalizedUserName)
}

func (s *Store) SetNormalizedUserName(context.Context, *User, string) error {
	return unsupported(OpSetNormalizedUserName)
}

func (s *Store) AddLogin(context.Context, *User, Login) error {
	return unsupported(OpAddLogin)
}

func (s *Store) RemoveLogin(context.Context, *User, string, string) error {
	return unsupported(OpRemoveLogin)
}

func (s *Store) GetLogins(context.Context, *User) ([]Login, error) {
	return nil, unsupported(OpGetLogins)
}

func (s *Store) FindByLogin(context.Context, string, string) (*User, error) {
	return nil, unsupported(OpFindByLogin)
}

func (s *Store) SetEmail(context.Context, *User, string) error {
	return unsupported(OpSetEmail)
}

func (s *Store) GetEmail(context.Context, *User) (string, error) {
	return "", unsupported(OpGetEmail)
}

func (s *Store) GetEmailConfirmed(context.Context, *User) (bool, error) {
	return false, unsupported(OpGetEmailConfirmed)
}

func (s *Store) SetEmailConfirmed(context.Context, *User, bool) error {
	return unsupported(OpSetEmailConfirmed)
}

func (s *Store) FindByEmail(context.Context, string) (*User, error) {
	return nil, unsupported(OpFindByEmail)
}

func (s *Store) GetNormalizedEmail(context.Context, *User) (string, error) {
	return "", unsupported(OpGetNormalizedEmail)
}

func (s *Store) SetNormalizedEmail(context.Context, *User, string) error {
	return unsupported(OpSetNormalizedEmail)
}
