// Package store implements the record collections on top of gorm.
package store

import (
	"errors"

	"fx-client-portal/ledger"

	"gorm.io/gorm"
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.ErrNotFound
	}
	return err
}
