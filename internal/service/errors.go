package service

import (
	"errors"

	"github.com/fjod/cart-api/internal/repository"
)

var (
	ErrItemNotFound       = repository.ErrItemNotFound
	ErrUserNotFound       = repository.ErrUserNotFound
	ErrEmailTaken         = repository.ErrEmailTaken
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)
