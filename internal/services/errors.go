package services

import (
	"errors"

	"cardanocart/internal/apperr"
)

var errBlobStoreMissing = errors.New("image storage is not configured")

func errDuplicateIdentity() *apperr.Error {
	return apperr.Duplicate("A user with this email or username already exists.")
}
