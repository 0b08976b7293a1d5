package backendtest

import "errors"

var (
	errEmailTaken   = errors.New("Email already registered")
	errUserNotFound = errors.New("User not found")
)
