package users

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("email or username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
)
