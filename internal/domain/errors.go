package domain

import "errors"

var (
	ErrNoToken          = errors.New("no token stored")
	ErrNoServerSelected = errors.New("no server selected")
	ErrServerNotFound   = errors.New("server not found")
	ErrManagerClosed    = errors.New("manager is closed")
)
