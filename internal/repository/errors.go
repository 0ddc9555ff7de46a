package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint.
var ErrDuplicate = errors.New("repository: duplicate key")

// ErrReferenced is returned when a delete is blocked by a foreign key.
var ErrReferenced = errors.New("repository: row is referenced")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqForeignKeyViolation:
			return ErrReferenced
		}
	}
	return err
}
