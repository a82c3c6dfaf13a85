package services

import "errors"

// Sentinel errors the handler layer maps onto HTTP statuses. Ownership
// failures deliberately look identical to missing resources.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUsernameTaken      = errors.New("a user with this username already exists")
)
